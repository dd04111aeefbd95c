package cosmos

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/infra/chain/wire"
)

// Field numbers from cosmos.base.tendermint.v1beta1 and tendermint.types.
const (
	respBlock     protowire.Number = 2 // GetBlockByHeightResponse.block
	respSDKBlock  protowire.Number = 3 // GetBlockByHeightResponse.sdk_block
	blockHeader   protowire.Number = 1
	blockData     protowire.Number = 2
	headerHeight  protowire.Number = 3
	headerTime    protowire.Number = 4
	dataTxs       protowire.Number = 1
	timestampSecs protowire.Number = 1
)

// parseBlockResponse extracts height, time and raw txs. Returns nil when the
// response carries no block header.
func parseBlockResponse(resp []byte) (*domain.Block, error) {
	raw, err := wire.Message(resp, respBlock)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		if raw, err = wire.Message(resp, respSDKBlock); err != nil || raw == nil {
			return nil, err
		}
	}

	var header, data []byte
	err = wire.Walk(raw, func(f wire.Field) error {
		switch f.Num {
		case blockHeader:
			header = f.Bytes
		case blockData:
			data = f.Bytes
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid block: %w", err)
	}
	if header == nil {
		return nil, nil
	}

	block := &domain.Block{}
	err = wire.Walk(header, func(f wire.Field) error {
		switch f.Num {
		case headerHeight:
			block.Height = f.Varint
		case headerTime:
			return wire.Walk(f.Bytes, func(tf wire.Field) error {
				if tf.Num == timestampSecs {
					block.Timestamp = int64(tf.Varint)
				}
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	err = wire.Walk(data, func(f wire.Field) error {
		if f.Num == dataTxs && f.Type == protowire.BytesType {
			tx := make([]byte, len(f.Bytes))
			copy(tx, f.Bytes)
			block.Txs = append(block.Txs, tx)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid block data: %w", err)
	}
	return block, nil
}
