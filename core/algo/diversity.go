package algo

import (
	"fmt"

	"github.com/huangsam/reposcout/schema"
)

// ValidateQuota rejects quotas that are negative, empty or have unordered scale thresholds.
func ValidateQuota(q schema.DiversityQuota) error {
	if q.MediumMax < q.SmallMax {
		return fmt.Errorf("diversity medium_max %v is below small_max %v: %w", q.MediumMax, q.SmallMax, schema.ErrInvalidConfig)
	}
	total := q.OpenSlots
	if q.OpenSlots < 0 {
		return fmt.Errorf("diversity open_slots is negative: %w", schema.ErrInvalidConfig)
	}
	for bucket, n := range q.ScaleQuotas {
		if _, ok := validScaleBuckets[bucket]; !ok {
			return fmt.Errorf("unknown scale bucket %q: %w", bucket, schema.ErrInvalidConfig)
		}
		if n < 0 {
			return fmt.Errorf("scale quota %s is negative: %w", bucket, schema.ErrInvalidConfig)
		}
		total += n
	}
	for category, n := range q.CategoryQuotas {
		if _, ok := schema.ValidCategories[category]; !ok {
			return fmt.Errorf("category quota %q: %w", category, schema.ErrUnknownCategory)
		}
		if n < 0 {
			return fmt.Errorf("category quota %s is negative: %w", category, schema.ErrInvalidConfig)
		}
		total += n
	}
	if total == 0 {
		return fmt.Errorf("diversity quotas offer no slots: %w", schema.ErrInvalidConfig)
	}
	return nil
}

var validScaleBuckets = map[schema.ScaleBucket]struct{}{
	schema.SmallScale:  {},
	schema.MediumScale: {},
	schema.LargeScale:  {},
}

// Balance walks the ranking in order and places each repository into the first of
// its buckets that still has room: its scale bucket, then its category bucket, then
// the open bucket. Repositories that fit nowhere are excluded as quota exhausted.
func Balance(ranking schema.Ranking, q schema.DiversityQuota) schema.DiversitySelection {
	capacity := make(map[string]int)
	for bucket, n := range q.ScaleQuotas {
		capacity[schema.ScaleBucketKey(bucket)] = n
	}
	for category, n := range q.CategoryQuotas {
		capacity[schema.CategoryBucketKey(category)] = n
	}
	capacity[schema.OpenBucketKey] = q.OpenSlots

	filled := make(map[string]int, len(capacity))
	entries := make([]schema.SelectionEntry, 0, len(ranking.Entries))
	for _, re := range ranking.Entries {
		scale := schema.SmallScale
		if re.HasScale {
			scale = q.BucketOf(re.Scale)
		}
		entry := schema.SelectionEntry{RankedEntry: re, ScaleBucket: scale}

		for _, key := range []string{
			schema.ScaleBucketKey(scale),
			schema.CategoryBucketKey(re.Category),
			schema.OpenBucketKey,
		} {
			if filled[key] < capacity[key] {
				filled[key]++
				entry.Included = true
				entry.Bucket = key
				break
			}
		}
		if !entry.Included {
			entry.Reason = schema.ErrorCode(schema.ErrQuotaExhausted)
		}
		entries = append(entries, entry)
	}

	return schema.DiversitySelection{
		Algorithm: ranking.Algorithm,
		Quota:     q,
		Entries:   entries,
		Filled:    filled,
	}
}
