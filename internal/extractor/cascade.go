package extractor

import "sjsage522/salewatch/internal/page"

// Strategy tries to resolve one field from a page. The bool is false when
// the strategy found nothing acceptable.
type Strategy[T any] func(page.Accessor) (T, bool)

// firstOf runs strategies in order and returns the first success.
func firstOf[T any](a page.Accessor, strategies ...Strategy[T]) (T, bool) {
	for _, s := range strategies {
		if v, ok := s(a); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
