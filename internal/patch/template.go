package patch

import _ "embed"

// defaultTemplate is the empty patcher used by `patchctl new` when no
// template file is given.
//
//go:embed template.json
var defaultTemplate []byte
