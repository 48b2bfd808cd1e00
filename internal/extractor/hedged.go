package extractor

import (
	"context"
	"fmt"
	"log"

	"freightrates/internal/port"
)

// HedgedService races a primary and a secondary provider and returns the
// first successful answer. When both have already answered, the primary
// wins. The slower call is cancelled once a winner is known.
type HedgedService struct {
	primary   port.ExtractionService
	secondary port.ExtractionService
}

// NewHedgedService creates a HedgedService from primary and secondary services.
func NewHedgedService(primary, secondary port.ExtractionService) *HedgedService {
	return &HedgedService{primary: primary, secondary: secondary}
}

type hedgedResult struct {
	output *port.ExtractOutput
	err    error
}

func (h *HedgedService) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	primaryCh := make(chan hedgedResult, 1)
	secondaryCh := make(chan hedgedResult, 1)
	go func() {
		out, err := h.primary.Extract(raceCtx, input)
		primaryCh <- hedgedResult{out, err}
	}()
	go func() {
		out, err := h.secondary.Extract(raceCtx, input)
		secondaryCh <- hedgedResult{out, err}
	}()

	var primaryErr, secondaryErr error
	for pending := 2; pending > 0; pending-- {
		select {
		case r := <-primaryCh:
			primaryCh = nil
			if r.err == nil {
				return r.output, nil
			}
			primaryErr = r.err
			log.Printf("extractor.HedgedService: primary failed, waiting on secondary: %v", r.err)
		case r := <-secondaryCh:
			secondaryCh = nil
			if r.err == nil {
				if primaryCh != nil {
					select {
					case p := <-primaryCh:
						if p.err == nil {
							return p.output, nil
						}
					default:
					}
				}
				return r.output, nil
			}
			secondaryErr = r.err
			log.Printf("extractor.HedgedService: secondary failed, waiting on primary: %v", r.err)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("both providers failed: primary: %v; secondary: %w", primaryErr, secondaryErr)
}
