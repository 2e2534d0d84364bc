package experiment

// Flags reports which experiments are switched on by configuration.
type Flags interface {
	ExperimentEnabled(id string) bool
}

// MapFlags is a static flag set. Missing ids are disabled.
type MapFlags map[string]bool

// ExperimentEnabled reports whether id is explicitly enabled.
func (f MapFlags) ExperimentEnabled(id string) bool {
	return f[id]
}

func isEnabled(flags Flags, id string) bool {
	if flags == nil {
		return false
	}
	return flags.ExperimentEnabled(id)
}
