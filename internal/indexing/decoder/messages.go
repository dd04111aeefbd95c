package decoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/infra/chain/wire"
)

// errAckFailed marks an acknowledgement that reports a failed transfer.
var errAckFailed = errors.New("acknowledgement carries an error")

func str(f wire.Field) (string, error) {
	if f.Type != protowire.BytesType {
		return "", fmt.Errorf("field %d: expected bytes, got wire type %d", f.Num, f.Type)
	}
	if !utf8.Valid(f.Bytes) {
		return "", fmt.Errorf("field %d: invalid utf-8", f.Num)
	}
	return string(f.Bytes), nil
}

// decodeCoin decodes cosmos.base.v1beta1.Coin.
func decodeCoin(b []byte) (domain.Coin, error) {
	var c domain.Coin
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			c.Denom, err = str(f)
		case 2:
			c.Amount, err = str(f)
		}
		return err
	})
	if err != nil {
		return domain.Coin{}, fmt.Errorf("invalid coin: %w", err)
	}
	return c, nil
}

func appendCoin(coins []domain.Coin, f wire.Field) ([]domain.Coin, error) {
	if f.Type != protowire.BytesType {
		return coins, fmt.Errorf("field %d: expected coin message", f.Num)
	}
	c, err := decodeCoin(f.Bytes)
	if err != nil {
		return coins, err
	}
	return append(coins, c), nil
}

// decodeSendToEth decodes gravity.v1.MsgSendToEth.
func decodeSendToEth(b []byte) (*domain.SendToEth, error) {
	msg := &domain.SendToEth{
		Amount:    []domain.Coin{},
		BridgeFee: []domain.Coin{},
		ChainFee:  []domain.Coin{},
	}
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			msg.Sender, err = str(f)
		case 2:
			msg.EthDest, err = str(f)
		case 3:
			msg.Amount, err = appendCoin(msg.Amount, f)
		case 4:
			msg.BridgeFee, err = appendCoin(msg.BridgeFee, f)
		case 5:
			msg.ChainFee, err = appendCoin(msg.ChainFee, f)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("invalid MsgSendToEth: %w", err)
	}
	return msg, nil
}

// decodeIBCTransfer decodes ibc.applications.transfer.v1.MsgTransfer.
func decodeIBCTransfer(b []byte) (*domain.IBCTransfer, error) {
	if len(b) == 0 {
		return nil, errors.New("invalid MsgTransfer: empty")
	}
	msg := &domain.IBCTransfer{Token: []domain.Coin{}}
	err := wire.Walk(b, func(f wire.Field) error {
		var err error
		switch f.Num {
		case 1:
			msg.SourcePort, err = str(f)
		case 2:
			msg.SourceChannel, err = str(f)
		case 3:
			msg.Token, err = appendCoin(msg.Token, f)
		case 4:
			msg.Sender, err = str(f)
		case 5:
			msg.Receiver, err = str(f)
		case 6:
			msg.TimeoutHeight, err = decodeHeight(f.Bytes)
		case 7:
			msg.TimeoutTimestamp = f.Varint
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("invalid MsgTransfer: %w", err)
	}
	return msg, nil
}

// decodeHeight decodes ibc.core.client.v1.Height.
func decodeHeight(b []byte) (*domain.IBCHeight, error) {
	h := &domain.IBCHeight{}
	err := wire.Walk(b, func(f wire.Field) error {
		switch f.Num {
		case 1:
			h.RevisionNumber = f.Varint
		case 2:
			h.RevisionHeight = f.Varint
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid height: %w", err)
	}
	return h, nil
}

// ackEnvelope is the JSON form of a channel acknowledgement.
type ackEnvelope struct {
	Result []byte `json:"result"`
	Error  string `json:"error"`
}

// unwrapAcknowledgement extracts the acknowledgement bytes from
// ibc.core.channel.v1.MsgAcknowledgement and returns its success result.
// Returns errAckFailed for error acknowledgements.
func unwrapAcknowledgement(b []byte) ([]byte, error) {
	var ack []byte
	err := wire.Walk(b, func(f wire.Field) error {
		if f.Num == 2 && f.Type == protowire.BytesType {
			ack = f.Bytes
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid MsgAcknowledgement: %w", err)
	}
	if len(ack) == 0 {
		return nil, errors.New("invalid MsgAcknowledgement: empty acknowledgement")
	}

	if ack[0] == '{' {
		var env ackEnvelope
		if err := json.Unmarshal(ack, &env); err != nil {
			return nil, fmt.Errorf("invalid acknowledgement json: %w", err)
		}
		if env.Error != "" {
			return nil, errAckFailed
		}
		if env.Result == nil {
			return nil, errors.New("acknowledgement has neither result nor error")
		}
		return env.Result, nil
	}

	// ibc.core.channel.v1.Acknowledgement: oneof result = 21, error = 22
	var (
		result []byte
		failed bool
		seen   bool
	)
	err = wire.Walk(ack, func(f wire.Field) error {
		switch f.Num {
		case 21:
			result, failed, seen = f.Bytes, false, true
		case 22:
			result, failed, seen = nil, true, true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid acknowledgement: %w", err)
	}
	if !seen {
		return nil, errors.New("acknowledgement has neither result nor error")
	}
	if failed {
		return nil, errAckFailed
	}
	return result, nil
}
