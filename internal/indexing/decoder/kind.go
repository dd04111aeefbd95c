package decoder

import "github.com/vietddude/gravity-indexer/internal/core/domain"

// Type URLs of the indexed messages.
const (
	TypeURLSendToEth          = "/gravity.v1.MsgSendToEth"
	TypeURLIBCTransfer        = "/ibc.applications.transfer.v1.MsgTransfer"
	TypeURLIBCAcknowledgement = "/ibc.core.channel.v1.MsgAcknowledgement"
)

// Kind is the closed set of message kinds the decoder understands.
type Kind int

const (
	KindIgnored Kind = iota
	KindSendToEth
	KindIBCTransfer
	KindIBCAcknowledgement
)

// KindOf classifies a type URL. Anything unknown is KindIgnored.
func KindOf(typeURL string) Kind {
	switch typeURL {
	case TypeURLSendToEth:
		return KindSendToEth
	case TypeURLIBCTransfer:
		return KindIBCTransfer
	case TypeURLIBCAcknowledgement:
		return KindIBCAcknowledgement
	default:
		return KindIgnored
	}
}

// MessageType returns the stored message type for the kind.
func (k Kind) MessageType() domain.MessageType {
	switch k {
	case KindSendToEth:
		return domain.MessageTypeSendToEth
	case KindIBCTransfer:
		return domain.MessageTypeIBCTransfer
	case KindIBCAcknowledgement:
		return domain.MessageTypeIBCRecv
	default:
		return ""
	}
}

func (k Kind) String() string {
	switch k {
	case KindSendToEth:
		return "send_to_eth"
	case KindIBCTransfer:
		return "ibc_transfer"
	case KindIBCAcknowledgement:
		return "ibc_acknowledgement"
	default:
		return "ignored"
	}
}
