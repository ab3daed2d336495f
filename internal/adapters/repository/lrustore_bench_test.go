package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/sentiolabs/sentio/internal/domain/model"
)

func BenchmarkLRUStore_Put(b *testing.B) {
	ctx := context.Background()
	store := NewLRUStore(WithCapacity(10_000))
	res := model.Result{Label: model.LabelPositive, Score: 0.9}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Put(ctx, fmt.Sprintf("key-%d", i%20_000), res)
	}
}

func BenchmarkLRUStore_Get(b *testing.B) {
	ctx := context.Background()
	store := NewLRUStore(WithCapacity(10_000))
	res := model.Result{Label: model.LabelNegative, Score: 0.8}
	for i := 0; i < 10_000; i++ {
		_ = store.Put(ctx, fmt.Sprintf("key-%d", i), res)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Get(ctx, fmt.Sprintf("key-%d", i%10_000))
	}
}

func BenchmarkLRUStore_MixedParallel(b *testing.B) {
	ctx := context.Background()
	store := NewLRUStore(WithCapacity(10_000))
	res := model.Result{Label: model.LabelPositive, Score: 0.7}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprintf("key-%d", i%20_000)
			if i%4 == 0 {
				_ = store.Put(ctx, key, res)
			} else {
				_, _ = store.Get(ctx, key)
			}
			i++
		}
	})
}
