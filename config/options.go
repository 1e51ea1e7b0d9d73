package config

// Option is one key/value pair of an ordered map.
type Option struct {
	Key   string `validate:"optionkey"`
	Value string `validate:"optionvalue"`
}

// Options is an ordered string map. Lookups are linear; option lists are
// a handful of entries long.
type Options []Option

// Get returns the value stored under key.
func (o Options) Get(key string) (string, bool) {
	for _, opt := range o {
		if opt.Key == key {
			return opt.Value, true
		}
	}

	return "", false
}

// With returns a copy of o with key set to value. An existing key keeps its
// position.
func (o Options) With(key, value string) Options {
	out := o.Clone()
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}

	return append(out, Option{Key: key, Value: value})
}

// Clone returns an independent copy of o.
func (o Options) Clone() Options {
	if o == nil {
		return nil
	}

	out := make(Options, len(o))
	copy(out, o)

	return out
}

// Keys lists the keys in insertion order.
func (o Options) Keys() []string {
	keys := make([]string, len(o))
	for i, opt := range o {
		keys[i] = opt.Key
	}

	return keys
}
