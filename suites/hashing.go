package suites

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"hash/crc32"
	"hash/fnv"

	"github.com/cespare/xxhash/v2"

	"github.com/weiihann/microbench/blackhole"
	"github.com/weiihann/microbench/config"
	"github.com/weiihann/microbench/suite"
)

type hashingState struct {
	size    int
	payload []byte
	fnv     hash.Hash64
	digest  *xxhash.Digest
}

// Hashing measures hash throughput over a fixed random payload. Every
// benchmark feeds its digest to the blackhole directly.
func Hashing() *suite.Descriptor {
	const name = "suites.Hashing"

	unit := config.Microseconds

	return &suite.Descriptor{
		Name: name,
		New:  func() any { return &hashingState{} },
		Parameters: []suite.ParameterSpec{
			{Name: "size", Values: []string{"64", "1024", "16384"}},
		},
		SetParameter: func(state any, param, value string) error {
			if param != "size" {
				return unknownParameter(name, param)
			}

			n, err := positiveInt(param, value)
			if err != nil {
				return err
			}
			state.(*hashingState).size = n

			return nil
		},
		Setup: suite.StateHook(func(s *hashingState) error {
			s.payload = NewGenerator(DatasetConfig{Seed: datasetSeed}).Payload(s.size)
			s.fnv = fnv.New64a()
			s.digest = xxhash.New()

			return nil
		}),
		Teardown: suite.StateHook(func(s *hashingState) error {
			s.payload = nil

			return nil
		}),
		Benchmarks: []suite.Benchmark{
			suite.Consuming("sha256", func(s *hashingState, bh blackhole.Blackhole) {
				sum := sha256.Sum256(s.payload)
				bh.ConsumeInt64(int64(binary.LittleEndian.Uint64(sum[:8])))
			}),
			suite.Consuming("fnv64a", func(s *hashingState, bh blackhole.Blackhole) {
				s.fnv.Reset()
				s.fnv.Write(s.payload)
				bh.ConsumeInt64(int64(s.fnv.Sum64()))
			}),
			suite.Consuming("crc32", func(s *hashingState, bh blackhole.Blackhole) {
				bh.ConsumeInt32(int32(crc32.ChecksumIEEE(s.payload)))
			}),
			suite.Consuming("xxhash", func(s *hashingState, bh blackhole.Blackhole) {
				s.digest.Reset()
				s.digest.Write(s.payload)
				bh.ConsumeInt64(int64(s.digest.Sum64()))
			}),
		},
		Defaults: config.Overrides{
			OutputTimeUnit: &unit,
		},
	}
}
