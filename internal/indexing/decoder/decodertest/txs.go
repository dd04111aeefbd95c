// Package decodertest builds protobuf-encoded transactions for tests.
package decodertest

import (
	"encoding/json"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
)

// Valid sample addresses.
const (
	Sender   = "gravity1qypqxpq9qcrsszg2pvxq6rs0zqg3yyc5mj7xr5"
	Receiver = "gravity1z5tpwxqergd3c8g7ruszzg3rysjjvfegvh2gtz"
	Cosmos   = "cosmos1qypqxpq9qcrsszg2pvxq6rs0zqg3yyc5lzv7xu"
	EthDest  = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
)

// Message is one Any-wrapped message.
type Message struct {
	TypeURL string
	Value   []byte
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// Coin encodes cosmos.base.v1beta1.Coin.
func Coin(c domain.Coin) []byte {
	var b []byte
	b = appendString(b, 1, c.Denom)
	return appendString(b, 2, c.Amount)
}

// SendToEth encodes gravity.v1.MsgSendToEth.
func SendToEth(sender, ethDest string, amount, bridgeFee, chainFee domain.Coin) Message {
	var b []byte
	b = appendString(b, 1, sender)
	b = appendString(b, 2, ethDest)
	b = appendBytes(b, 3, Coin(amount))
	b = appendBytes(b, 4, Coin(bridgeFee))
	b = appendBytes(b, 5, Coin(chainFee))
	return Message{TypeURL: "/gravity.v1.MsgSendToEth", Value: b}
}

// TransferBytes encodes ibc.applications.transfer.v1.MsgTransfer.
func TransferBytes(t domain.IBCTransfer) []byte {
	var b []byte
	b = appendString(b, 1, t.SourcePort)
	b = appendString(b, 2, t.SourceChannel)
	for _, c := range t.Token {
		b = appendBytes(b, 3, Coin(c))
	}
	b = appendString(b, 4, t.Sender)
	b = appendString(b, 5, t.Receiver)
	if t.TimeoutHeight != nil {
		var h []byte
		h = appendVarint(h, 1, t.TimeoutHeight.RevisionNumber)
		h = appendVarint(h, 2, t.TimeoutHeight.RevisionHeight)
		b = appendBytes(b, 6, h)
	}
	if t.TimeoutTimestamp != 0 {
		b = appendVarint(b, 7, t.TimeoutTimestamp)
	}
	return b
}

// IBCTransfer wraps a MsgTransfer.
func IBCTransfer(t domain.IBCTransfer) Message {
	return Message{TypeURL: "/ibc.applications.transfer.v1.MsgTransfer", Value: TransferBytes(t)}
}

// Acknowledgement wraps a protobuf channel acknowledgement. A non-empty
// errMsg produces an error acknowledgement.
func Acknowledgement(result []byte, errMsg string) Message {
	var ack []byte
	if errMsg != "" {
		ack = appendString(ack, 22, errMsg)
	} else {
		ack = appendBytes(ack, 21, result)
	}
	return ackMessage(ack)
}

// JSONAcknowledgement wraps the JSON form of a channel acknowledgement.
func JSONAcknowledgement(result []byte, errMsg string) Message {
	var ack []byte
	if errMsg != "" {
		ack, _ = json.Marshal(map[string]string{"error": errMsg})
	} else {
		ack, _ = json.Marshal(map[string][]byte{"result": result})
	}
	return ackMessage(ack)
}

func ackMessage(ack []byte) Message {
	var b []byte
	b = appendBytes(b, 1, []byte{0x08, 0x01}) // packet
	b = appendBytes(b, 2, ack)
	b = appendString(b, 5, Sender)
	return Message{TypeURL: "/ibc.core.channel.v1.MsgAcknowledgement", Value: b}
}

// Tx encodes a TxRaw holding msgs.
func Tx(memo string, msgs ...Message) []byte {
	var body []byte
	for _, m := range msgs {
		var a []byte
		a = appendString(a, 1, m.TypeURL)
		a = appendBytes(a, 2, m.Value)
		body = appendBytes(body, 1, a)
	}
	if memo != "" {
		body = appendString(body, 2, memo)
	}

	var raw []byte
	raw = appendBytes(raw, 1, body)
	raw = appendBytes(raw, 2, []byte{0x12, 0x00}) // auth_info
	raw = appendBytes(raw, 3, []byte("sig"))
	return raw
}

// Block builds a block at height holding txs.
func Block(height uint64, timestamp int64, txs ...[]byte) *domain.Block {
	return &domain.Block{Height: height, Timestamp: timestamp, Txs: txs}
}

// SampleTransfer returns a populated IBC transfer.
func SampleTransfer() domain.IBCTransfer {
	return domain.IBCTransfer{
		SourcePort:       "transfer",
		SourceChannel:    "channel-10",
		Token:            []domain.Coin{{Denom: "ugraviton", Amount: "1000000"}},
		Sender:           Sender,
		Receiver:         Cosmos,
		TimeoutHeight:    &domain.IBCHeight{RevisionNumber: 4, RevisionHeight: 9000000},
		TimeoutTimestamp: 1700000000000000000,
	}
}
