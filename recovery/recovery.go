// Package recovery lets hosts decide how the parser reacts to damaged
// input: fail the whole document, or patch over the problem and keep
// going.
package recovery

// Strategy is consulted whenever the parser meets malformed syntax it
// could plausibly continue past.
type Strategy interface {
	OnError(err error, location Location) Action
}

// Location pinpoints where in the file the problem was found.
type Location struct {
	ByteOffset int64
	ObjectNum  int
	ObjectGen  int
	Component  string
}

// Action is the strategy's verdict.
type Action int

const (
	// ActionFail aborts the surrounding operation.
	ActionFail Action = iota
	// ActionWarn patches over the problem and continues.
	ActionWarn
)

type strict struct{}

func (strict) OnError(error, Location) Action { return ActionFail }

// Strict fails on any malformed syntax.
func Strict() Strategy { return strict{} }

type lenient struct{}

func (lenient) OnError(error, Location) Action { return ActionWarn }

// Lenient continues past recoverable problems.
func Lenient() Strategy { return lenient{} }
