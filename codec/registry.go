package codec

// registry replaces dynamic plugin loading with static registration: every
// codec file registers its Factory from its own init(), and the driver
// builds its working set by name at run start.
var registry = map[string]Factory{}

// registrationOrder preserves the order names were registered in; codecs
// run against every page in this order.
var registrationOrder []string

// Register adds a codec factory under name. Panics on duplicate
// registration, which can only happen from a programming error (two init()
// functions choosing the same name), not from any runtime input.
func Register(name string, factory Factory) {
	if _, exists := registry[name]; exists {
		panic("codec: duplicate registration for " + name)
	}
	registry[name] = factory
	registrationOrder = append(registrationOrder, name)
}

// Names returns every registered codec name in registration order.
func Names() []string {
	out := make([]string, len(registrationOrder))
	copy(out, registrationOrder)

	return out
}

// Build instantiates every registered codec with opts, in registration
// order.
func Build(opts AdapterOptions) []Codec {
	out := make([]Codec, 0, len(registrationOrder))
	for _, name := range registrationOrder {
		out = append(out, registry[name](opts))
	}

	return out
}
