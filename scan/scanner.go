// Package scan walks ranges of virtual memory, resolving every step to a
// physical address and a DRAM location.
package scan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sarchlab/v2p/mem/dram/addressmapping"
	"github.com/sarchlab/v2p/mem/vm/addresstranslator"
	"github.com/sarchlab/v2p/mem/vm/pagemap"
)

// Translator resolves virtual addresses to physical ones.
type Translator interface {
	Translate(vAddr uint64) addresstranslator.Result
}

// Policy decides which results end a scan early.
type Policy int

// Available policies.
const (
	// PolicyContinue walks the whole range whatever the results are.
	PolicyContinue Policy = iota

	// PolicyStopOnError stops at the first address whose entry cannot be
	// read.
	PolicyStopOnError

	// PolicyStopOnNonResident stops at the first address that does not
	// resolve to a physical address.
	PolicyStopOnNonResident
)

var policyNames = map[Policy]string{
	PolicyContinue:          "continue",
	PolicyStopOnError:       "stop-on-error",
	PolicyStopOnNonResident: "stop-on-non-resident",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}

	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses the name of a policy, as printed by String.
func ParsePolicy(s string) (Policy, error) {
	for p, name := range policyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}

	return 0, fmt.Errorf("unknown scan policy %q", s)
}

func (p Policy) stopsAt(kind addresstranslator.Kind) bool {
	switch p {
	case PolicyStopOnError:
		return kind == addresstranslator.Failed
	case PolicyStopOnNonResident:
		return kind != addresstranslator.Resident
	default:
		return false
	}
}

// ErrStopped is matched by the error returned when a policy ends a scan.
var ErrStopped = errors.New("scan stopped")

// StopError carries the record that made the policy end the scan.
type StopError struct {
	Policy Policy
	Record Record
}

func (e *StopError) Error() string {
	return fmt.Sprintf("%v by policy %s at %s", ErrStopped, e.Policy, e.Record)
}

// Is reports whether target is ErrStopped.
func (e *StopError) Is(target error) bool {
	return target == ErrStopped
}

// Unwrap returns the translation failure, if the record has one.
func (e *StopError) Unwrap() error {
	return e.Record.Err
}

// Summary counts the outcomes of a scan.
type Summary struct {
	Resident    int
	NotResident int
	Failed      int
}

// Total returns the number of scanned addresses.
func (s Summary) Total() int {
	return s.Resident + s.NotResident + s.Failed
}

func (s *Summary) add(kind addresstranslator.Kind) {
	switch kind {
	case addresstranslator.Resident:
		s.Resident++
	case addresstranslator.NotResident:
		s.NotResident++
	default:
		s.Failed++
	}
}

func (s *Summary) merge(o Summary) {
	s.Resident += o.Resident
	s.NotResident += o.NotResident
	s.Failed += o.Failed
}

// A Scanner translates every step of a virtual range and reports each result
// to its hooks. It is not safe for concurrent use.
type Scanner struct {
	HookableBase

	translator Translator
	mapper     addressmapping.Mapper
	policy     Policy
	step       uint64
	session    string
	log        *zap.Logger

	nextSeq int
}

// Session returns the identifier shared by all records of this scanner.
func (s *Scanner) Session() string {
	return s.session
}

// Scan walks [start, start+length) in steps. The context is checked before
// every step.
func (s *Scanner) Scan(
	ctx context.Context,
	start, length uint64,
) (Summary, error) {
	summary, err := s.walk(ctx, start, length)
	s.done(summary, err)

	return summary, err
}

// ScanRegions walks each region in turn, as a single scan. Empty regions are
// skipped.
func (s *Scanner) ScanRegions(
	ctx context.Context,
	regions []pagemap.Region,
) (Summary, error) {
	var (
		summary Summary
		err     error
	)

	for _, region := range regions {
		if region.Len() == 0 {
			continue
		}

		s.InvokeHook(HookCtx{
			Domain: s,
			Pos:    HookPosRegion,
			Item:   region,
		})

		var part Summary

		part, err = s.walk(ctx, region.Start, region.Len())
		summary.merge(part)

		if err != nil {
			break
		}
	}

	s.done(summary, err)

	return summary, err
}

// ScanAddresses resolves each address in turn, as a single scan.
func (s *Scanner) ScanAddresses(
	ctx context.Context,
	vAddrs []uint64,
) (Summary, error) {
	var (
		summary Summary
		err     error
	)

	for _, vAddr := range vAddrs {
		var part Summary

		part, err = s.walk(ctx, vAddr, 1)
		summary.merge(part)

		if err != nil {
			break
		}
	}

	s.done(summary, err)

	return summary, err
}

func (s *Scanner) walk(
	ctx context.Context,
	start, length uint64,
) (Summary, error) {
	var summary Summary

	if length == 0 {
		return summary, nil
	}

	if length-1 > math.MaxUint64-start {
		return summary, fmt.Errorf(
			"range 0x%x+0x%x runs past the address space", start, length)
	}

	s.log.Debug("scanning range",
		zap.String("start", fmt.Sprintf("0x%x", start)),
		zap.Uint64("length", length),
		zap.Uint64("step", s.step))

	for off := uint64(0); ; off += s.step {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		record := s.resolve(start + off)
		summary.add(record.Kind)

		s.InvokeHook(HookCtx{
			Domain: s,
			Pos:    HookPosRecord,
			Item:   record,
		})

		if s.policy.stopsAt(record.Kind) {
			return summary, &StopError{Policy: s.policy, Record: record}
		}

		if length-off <= s.step {
			return summary, nil
		}
	}
}

func (s *Scanner) resolve(vAddr uint64) Record {
	record := Record{
		Seq:    s.nextSeq,
		Result: s.translator.Translate(vAddr),
	}
	s.nextSeq++

	if record.Kind == addresstranslator.Resident {
		record.Location = s.mapper.Map(record.PAddr)
	}

	return record
}

func (s *Scanner) done(summary Summary, err error) {
	s.InvokeHook(HookCtx{
		Domain: s,
		Pos:    HookPosDone,
		Item:   summary,
		Detail: err,
	})
}
