package stepconf

// InputParser fills a config struct from `env` struct tags.
type InputParser interface {
	Parse(input interface{}) error
}

type defaultInputParser struct {
	envGetter EnvGetter
}

// NewInputParser returns a parser reading values from envGetter, usually an env.Repository.
func NewInputParser(envGetter EnvGetter) InputParser {
	return defaultInputParser{envGetter: envGetter}
}

// Parse ...
func (p defaultInputParser) Parse(input interface{}) error {
	return parse(input, p.envGetter)
}
