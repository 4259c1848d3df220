package packet

// Packet pairs a correlation id with its decoded Body — the in-memory
// representation sessions exchange after the protocol layer has peeled
// off the frame header.
type Packet struct {
	ID   uint64
	Body Body
}

// Type returns the packet's variant tag.
func (p Packet) Type() Type {
	return p.Body.Type()
}

// AcceptedTypeNames renders a slice of Type tags as their names, e.g.
// for logging an InvalidPacketType response's accepted set.
func AcceptedTypeNames(types []Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
