package parser

// Options configures behaviour that sits outside the core decode path.
type Options struct {
	// MaxDirectoryDepth caps how many parent hops GetFullPath will
	// follow before giving up on a cyclic or unreasonably deep tree.
	MaxDirectoryDepth int
}

func GetDefaultOptions() Options {
	return Options{
		MaxDirectoryDepth: 20,
	}
}
