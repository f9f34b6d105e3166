package crypto

// KeyKind tells the cipher layer which mode a key selects.
type KeyKind int

const (
	KindPublic KeyKind = iota + 1
	KindPrivate
	KindSession
)

func (k KeyKind) String() string {
	switch k {
	case KindPublic:
		return "public"
	case KindPrivate:
		return "private"
	case KindSession:
		return "session"
	default:
		return "unknown"
	}
}

// Key is implemented by *PublicKey, *KeyPair and *SessionKey.
type Key interface {
	Kind() KeyKind
}

var (
	_ Key = (*PublicKey)(nil)
	_ Key = (*KeyPair)(nil)
	_ Key = (*SessionKey)(nil)
)
