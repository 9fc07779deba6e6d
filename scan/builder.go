package scan

import (
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/sarchlab/v2p/mem/dram/addressmapping"
)

// A Builder can create scanners.
type Builder struct {
	translator Translator
	mapper     addressmapping.Mapper
	policy     Policy
	step       uint64
	session    string
	logger     *zap.Logger
	hooks      []Hook
}

// MakeBuilder creates a builder with default parameters. The scanner steps
// 4 KiB at a time, stops on the first failed translation, and decodes
// physical addresses with the default DRAM layout.
func MakeBuilder() Builder {
	return Builder{
		mapper: addressmapping.DefaultLayout,
		policy: PolicyStopOnError,
		step:   4096,
		logger: zap.NewNop(),
	}
}

// WithTranslator sets the translator that resolves virtual addresses. It is
// required.
func (b Builder) WithTranslator(t Translator) Builder {
	b.translator = t
	return b
}

// WithMapper sets how physical addresses are decomposed into DRAM locations.
func (b Builder) WithMapper(m addressmapping.Mapper) Builder {
	b.mapper = m
	return b
}

// WithPolicy sets which results end a scan early.
func (b Builder) WithPolicy(p Policy) Builder {
	b.policy = p
	return b
}

// WithStep sets the distance in bytes between two scanned addresses.
func (b Builder) WithStep(n uint64) Builder {
	b.step = n
	return b
}

// WithSession sets the session identifier. By default a new one is generated.
func (b Builder) WithSession(id string) Builder {
	b.session = id
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l *zap.Logger) Builder {
	b.logger = l
	return b
}

// WithAdditionalHooks adds hooks to the scanner, in order.
func (b Builder) WithAdditionalHooks(hooks ...Hook) Builder {
	b.hooks = append(append([]Hook(nil), b.hooks...), hooks...)
	return b
}

// Build creates the scanner.
func (b Builder) Build() *Scanner {
	b.mustHaveTranslator()
	b.mustHaveMapper()
	b.mustHavePositiveStep()

	s := &Scanner{
		translator: b.translator,
		mapper:     b.mapper,
		policy:     b.policy,
		step:       b.step,
		session:    b.session,
		log:        b.logger,
	}

	if s.session == "" {
		s.session = xid.New().String()
	}

	if s.log == nil {
		s.log = zap.NewNop()
	}

	s.log = s.log.With(zap.String("session", s.session))

	for _, hook := range b.hooks {
		s.AcceptHook(hook)
	}

	return s
}

func (b Builder) mustHaveTranslator() {
	if b.translator == nil {
		panic("scanner requires a translator")
	}
}

func (b Builder) mustHaveMapper() {
	if b.mapper == nil {
		panic("scanner requires a DRAM mapper")
	}
}

func (b Builder) mustHavePositiveStep() {
	if b.step == 0 {
		panic("scan step must be positive")
	}
}
