package ldbstore

import (
	"encoding/binary"

	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/infrastructure/db/database"
)

var (
	headersBucket          = database.MakeBucket([]byte("headers"))
	headerHashesBucket     = database.MakeBucket([]byte("header-hashes"))
	blockAccumulatedBucket = database.MakeBucket([]byte("block-accumulated"))
	kernelsBucket          = database.MakeBucket([]byte("kernels"))
	outputsBucket          = database.MakeBucket([]byte("outputs"))
	outputIndexBucket      = database.MakeBucket([]byte("output-index"))
	mmrSizesBucket         = database.MakeBucket([]byte("mmr-sizes"))
	metadataBucket         = database.MakeBucket([]byte("metadata"))
	horizonSyncBucket      = database.MakeBucket([]byte("horizon-sync"))
	journalBucket          = horizonSyncBucket.Bucket([]byte("journal"))

	horizonSyncMarkerKey = horizonSyncBucket.Key([]byte("marker"))

	// allBuckets are the top level buckets. Every record of the store
	// lives in exactly one of them.
	allBuckets = []*database.Bucket{
		headersBucket,
		headerHashesBucket,
		blockAccumulatedBucket,
		kernelsBucket,
		outputsBucket,
		outputIndexBucket,
		mmrSizesBucket,
		metadataBucket,
		horizonSyncBucket,
	}
)

const (
	metadataKeyBestBlock             = "best-block"
	metadataKeyChainHeight           = "chain-height"
	metadataKeyAccumulatedWork       = "accumulated-work"
	metadataKeyEffectivePrunedHeight = "effective-pruned-height"
	metadataKeyHeaderTipHeight       = "header-tip-height"

	metadataVersion = 1
)

func uint64Bytes(value uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)
	return buf[:]
}

func headerKey(height uint64) *database.Key {
	return headersBucket.Key(uint64Bytes(height))
}

func headerHashKey(hash *externalapi.DomainHash) *database.Key {
	return headerHashesBucket.Key(hash.ByteSlice())
}

func blockAccumulatedKey(hash *externalapi.DomainHash) *database.Key {
	return blockAccumulatedBucket.Key(hash.ByteSlice())
}

func kernelKey(leafIndex uint64) *database.Key {
	return kernelsBucket.Key(uint64Bytes(leafIndex))
}

func outputKey(leafIndex uint64) *database.Key {
	return outputsBucket.Key(uint64Bytes(leafIndex))
}

func outputIndexKey(commitment *externalapi.Commitment) *database.Key {
	return outputIndexBucket.Key(commitment[:])
}

func mmrSizeKey(tree externalapi.MmrTree) *database.Key {
	return mmrSizesBucket.Key([]byte(tree.String()))
}

func metadataKey(name string) *database.Key {
	return metadataBucket.Key([]byte(name))
}

func journalKey(key *database.Key) *database.Key {
	return journalBucket.Key(key.Bytes())
}
