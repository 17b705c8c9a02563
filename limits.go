package dfxml

// Limits bounds the memory a Reader spends on a single document. A zero
// field takes its default.
type Limits struct {
	MaxDepth    int // open elements
	MaxCharData int // bytes of character data buffered for one element
	MaxByteRuns int // byte runs per file object
	MaxTags     int // tags per record
}

func defaultLimits() Limits {
	return Limits{
		MaxDepth:    256,
		MaxCharData: 16 << 20, // 16 MiB
		MaxByteRuns: 1 << 20,
		MaxTags:     10_000,
	}
}

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MaxDepth == 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxCharData == 0 {
		l.MaxCharData = d.MaxCharData
	}
	if l.MaxByteRuns == 0 {
		l.MaxByteRuns = d.MaxByteRuns
	}
	if l.MaxTags == 0 {
		l.MaxTags = d.MaxTags
	}
	return l
}
