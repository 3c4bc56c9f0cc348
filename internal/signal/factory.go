package signal

import "fmt"

// New собирает движок сигнала по имени из конфига.
func New(name string, minTicks int) (Engine, error) {
	switch name {
	case "last_first", "":
		return NewLastFirst(minTicks), nil
	case "split_mean":
		return NewSplitMean(minTicks), nil
	default:
		return nil, fmt.Errorf("unknown signal strategy: %q", name)
	}
}
