// Package persistence holds the bucket layout shared by the durable ledger
// backends and the archive exporter: each state mapping and the id counters
// are serialised as one JSON document per bucket.
package persistence

import (
	"encoding/json"
	"fmt"

	"mycoledger/pkg/domain"
)

// Bucket names in persistence order.
const (
	BucketNetworks           = "networks"
	BucketTrees              = "trees"
	BucketInoculations       = "inoculations"
	BucketCarbonMeasurements = "carbon_measurements"
	BucketSequences          = "sequences"
)

// Buckets lists every bucket a snapshot is split into.
var Buckets = []string{
	BucketNetworks,
	BucketTrees,
	BucketInoculations,
	BucketCarbonMeasurements,
	BucketSequences,
}

func bucketTarget(snapshot *domain.Snapshot, bucket string) (any, bool) {
	switch bucket {
	case BucketNetworks:
		return &snapshot.Networks, true
	case BucketTrees:
		return &snapshot.Trees, true
	case BucketInoculations:
		return &snapshot.Inoculations, true
	case BucketCarbonMeasurements:
		return &snapshot.CarbonMeasurements, true
	case BucketSequences:
		return &snapshot.Sequences, true
	default:
		return nil, false
	}
}

// EncodeBucket marshals a single bucket of the snapshot.
func EncodeBucket(snapshot domain.Snapshot, bucket string) ([]byte, error) {
	target, ok := bucketTarget(&snapshot, bucket)
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	data, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", bucket, err)
	}
	return data, nil
}

// DecodeBucket unmarshals payload into the matching field of snapshot.
// Unknown buckets and empty payloads are ignored so older databases load.
func DecodeBucket(snapshot *domain.Snapshot, bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	target, ok := bucketTarget(snapshot, bucket)
	if !ok {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
