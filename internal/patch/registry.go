package patch

// classInfo records the fixed port counts for a known object class.
type classInfo struct {
	Inlets  int
	Outlets int
}

// uiClasses are box classes created from a bare class token rather than
// newobj text. The message box keeps the remainder of the text as its body.
var uiClasses = map[string]classInfo{
	"message": {2, 1},
	"comment": {1, 0},
	"toggle":  {1, 1},
	"button":  {1, 1},
	"number":  {2, 2},
	"flonum":  {2, 2},
	"slider":  {2, 1},
	"dial":    {2, 1},
}

// knownObjects holds port counts for the core Max objects this tool can
// place without consulting the installed reference pages. Anything missing
// here defaults to one inlet and one outlet and is reported by the health
// check as unknown.
var knownObjects = map[string]classInfo{
	"bang":        {1, 1},
	"metro":       {2, 1},
	"delay":       {2, 1},
	"pipe":        {2, 2},
	"trigger":     {1, 2},
	"t":           {1, 2},
	"pack":        {2, 1},
	"unpack":      {1, 2},
	"route":       {2, 2},
	"select":      {2, 2},
	"sel":         {2, 2},
	"gate":        {2, 1},
	"switch":      {2, 1},
	"counter":     {3, 4},
	"random":      {2, 1},
	"scale":       {6, 1},
	"line":        {3, 2},
	"print":       {1, 0},
	"loadbang":    {1, 1},
	"closebang":   {1, 1},
	"deferlow":    {1, 1},
	"prepend":     {1, 1},
	"append":      {1, 1},
	"sprintf":     {1, 1},
	"js":          {1, 1},
	"thispatcher": {1, 2},
	"send":        {1, 0},
	"receive":     {0, 1},
	"s":           {1, 0},
	"r":           {0, 1},
	"cycle~":      {2, 1},
	"phasor~":     {2, 1},
	"saw~":        {2, 1},
	"rect~":       {2, 1},
	"tri~":        {2, 1},
	"noise~":      {1, 1},
	"sig~":        {1, 1},
	"line~":       {2, 2},
	"*~":          {2, 1},
	"+~":          {2, 1},
	"-~":          {2, 1},
	"/~":          {2, 1},
	"gain~":       {2, 2},
	"live.gain~":  {2, 5},
	"dac~":        {2, 0},
	"adc~":        {1, 2},
	"ezdac~":      {2, 0},
	"ezadc~":      {1, 2},
	"scope~":      {2, 0},
	"meter~":      {1, 1},
	"delay~":      {2, 1},
	"tapin~":      {1, 1},
	"tapout~":     {1, 1},
	"lores~":      {3, 1},
	"svf~":        {4, 4},
	"plugin~":     {2, 2},
	"plugout~":    {2, 2},
	"live.dial":   {2, 3},
	"live.slider": {2, 3},
	"live.toggle": {2, 3},
}

func lookupKnown(name string) (classInfo, bool) {
	info, ok := knownObjects[name]
	return info, ok
}

func isKnownName(name string) bool {
	if _, ok := knownObjects[name]; ok {
		return true
	}
	_, ok := uiClasses[name]
	return ok
}
