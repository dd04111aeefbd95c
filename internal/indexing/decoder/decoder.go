// Package decoder extracts indexed messages from raw Cosmos transactions.
//
// A raw tx is a TxRaw envelope whose body holds a list of Any messages. Each
// message is classified by its type URL into a Kind and decoded by the
// matching function; unknown kinds are ignored. Acknowledgements are unwrapped
// one level and their success result decoded as an IBC transfer.
package decoder

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
	"github.com/vietddude/gravity-indexer/internal/infra/chain/wire"
)

// ErrEmptyTx is returned for a zero-length transaction.
var ErrEmptyTx = errors.New("empty transaction")

// TxResult is the outcome of decoding one transaction.
type TxResult struct {
	TxHash   string
	Messages []domain.IndexedMessage
	// Relevant is set when the tx holds at least one message of a known kind,
	// even if it failed to decode.
	Relevant bool
	// Skipped counts known messages that were dropped (decode errors,
	// failed acknowledgements).
	Skipped int
	// Errors holds per-message decode errors.
	Errors []error
}

// Decoder turns raw transactions into indexed messages.
type Decoder struct {
	validator *AddressValidator
	log       *slog.Logger
}

// New creates a decoder. A nil validator disables address checks.
func New(validator *AddressValidator) *Decoder {
	return &Decoder{
		validator: validator,
		log:       slog.Default().With("component", "decoder"),
	}
}

// TxHash returns the uppercase hex SHA-256 of the tx bytes as carried in the block.
func TxHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

type anyMsg struct {
	typeURL string
	value   []byte
}

// DecodeTx decodes one transaction of block. An error is returned only when
// the envelope itself is unreadable; message-level failures land in
// TxResult.Errors.
func (d *Decoder) DecodeTx(block *domain.Block, raw []byte) (TxResult, error) {
	if len(raw) == 0 {
		return TxResult{}, ErrEmptyTx
	}
	res := TxResult{TxHash: TxHash(raw)}

	msgs, err := bodyMessages(raw)
	if err != nil {
		return res, fmt.Errorf("tx %s: %w", res.TxHash, err)
	}

	for i, m := range msgs {
		kind := KindOf(m.typeURL)
		if kind == KindIgnored {
			continue
		}
		res.Relevant = true

		payload, err := d.decodeMessage(kind, m.value)
		if errors.Is(err, errAckFailed) {
			res.Skipped++
			continue
		}
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Errorf("tx %s msg %d (%s): %w", res.TxHash, i, kind, err))
			continue
		}

		res.Messages = append(res.Messages, domain.IndexedMessage{
			Height:         block.Height,
			Type:           kind.MessageType(),
			BlockTimestamp: block.Timestamp,
			TxHash:         res.TxHash,
			Payload:        payload,
		})
	}
	return res, nil
}

// DecodeBlock decodes every tx of a block in order. Envelope errors are
// logged and the tx skipped.
func (d *Decoder) DecodeBlock(block *domain.Block) []TxResult {
	results := make([]TxResult, 0, len(block.Txs))
	for i, raw := range block.Txs {
		res, err := d.DecodeTx(block, raw)
		if err != nil {
			d.log.Warn("Skipping undecodable tx", "height", block.Height, "index", i, "error", err)
			res.Errors = []error{err}
		} else {
			for _, merr := range res.Errors {
				d.log.Warn("Skipping undecodable message", "height", block.Height, "error", merr)
			}
		}
		results = append(results, res)
	}
	return results
}

func (d *Decoder) decodeMessage(kind Kind, value []byte) (domain.Payload, error) {
	switch kind {
	case KindSendToEth:
		msg, err := decodeSendToEth(value)
		if err != nil {
			return nil, err
		}
		if d.validator != nil {
			if err := d.validator.Sender(msg.Sender); err != nil {
				return nil, err
			}
			if err := d.validator.EthDest(msg.EthDest); err != nil {
				return nil, err
			}
		}
		return msg, nil
	case KindIBCTransfer:
		return decodeIBCTransfer(value)
	case KindIBCAcknowledgement:
		result, err := unwrapAcknowledgement(value)
		if err != nil {
			return nil, err
		}
		return decodeIBCTransfer(result)
	default:
		return nil, fmt.Errorf("unsupported kind %d", kind)
	}
}

// bodyMessages decodes TxRaw.body_bytes and returns TxBody.messages.
func bodyMessages(raw []byte) ([]anyMsg, error) {
	var body []byte
	var seenBody bool
	err := wire.Walk(raw, func(f wire.Field) error {
		if f.Num == 1 && f.Type == protowire.BytesType {
			body, seenBody = f.Bytes, true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid TxRaw: %w", err)
	}
	if !seenBody {
		return nil, errors.New("invalid TxRaw: missing body")
	}

	var msgs []anyMsg
	err = wire.Walk(body, func(f wire.Field) error {
		if f.Num != 1 || f.Type != protowire.BytesType {
			return nil
		}
		var m anyMsg
		if err := wire.Walk(f.Bytes, func(af wire.Field) error {
			switch af.Num {
			case 1:
				m.typeURL = string(af.Bytes)
			case 2:
				m.value = af.Bytes
			}
			return nil
		}); err != nil {
			return fmt.Errorf("invalid Any: %w", err)
		}
		msgs = append(msgs, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid TxBody: %w", err)
	}
	return msgs, nil
}
