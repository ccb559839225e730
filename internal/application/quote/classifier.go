package quoteapp

import (
	"time"

	"go.uber.org/zap"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
)

// ClassifySettled maps one settled validation call for the item at index
func ClassifySettled(index int, item quote.LineItemShape, settled SettledResult) quote.ValidatedProduct {
	return quote.Classify(index, item, settled.Response, settled.Err)
}

// Bucket distributes validated products into their status buckets, keeping
// input order within each bucket
func Bucket(products []quote.ValidatedProduct) quote.ClassifiedProducts {
	classified := quote.NewClassifiedProducts()
	for _, p := range products {
		classified.Add(p)
	}
	return classified
}

func summaryFields(c quote.ClassifiedProducts, elapsed time.Duration) []zap.Field {
	var network int
	for _, p := range c.Error {
		if p.Failure != nil && p.Failure.Kind == quote.FailureNetwork {
			network++
		}
	}
	return []zap.Field{
		zap.Int("total", c.Len()),
		zap.Int("success", len(c.Success)),
		zap.Int("warning", len(c.Warning)),
		zap.Int("error", len(c.Error)),
		zap.Int("network_failures", network),
		zap.Duration("elapsed", elapsed),
	}
}
