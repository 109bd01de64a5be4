package scan

// SondeType is the transmitter protocol family reported by the detector.
type SondeType int

const (
	// TypeNone means no sonde was classified, it is not an error
	TypeNone SondeType = iota
	TypeRS41
	TypeRS92
	// TypeUnknown is an unrecognized detector exit status, logged and
	// treated as "no detection" by the search loop
	TypeUnknown
)

func (t SondeType) String() string {
	switch t {
	case TypeRS41:
		return "RS41"
	case TypeRS92:
		return "RS92"
	case TypeUnknown:
		return "unknown"
	default:
		return "none"
	}
}

// Detected reports whether the classification identified a decodable sonde.
func (t SondeType) Detected() bool {
	return t == TypeRS41 || t == TypeRS92
}
