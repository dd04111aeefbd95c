package domain

// MessageType is the key segment that classifies an indexed message.
// The values are the original on-disk names and must not change.
type MessageType string

const (
	MessageTypeSendToEth   MessageType = "msgSendToEth"
	MessageTypeIBCTransfer MessageType = "msgIbcTransfer"
	MessageTypeIBCRecv     MessageType = "msgIbcRecv"
)

// Valid reports whether t is one of the indexed message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeSendToEth, MessageTypeIBCTransfer, MessageTypeIBCRecv:
		return true
	}
	return false
}

// Coin is a (denomination, amount) pair. Amount keeps the chain's decimal string.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// Payload is the decoded body of an indexed message.
// Only the types in this package implement it.
type Payload interface {
	isPayload()
}

// SendToEth is a transfer from the chain to an Ethereum address.
type SendToEth struct {
	Sender    string `json:"sender"`
	EthDest   string `json:"eth_dest"`
	Amount    []Coin `json:"amount"`
	BridgeFee []Coin `json:"bridge_fee"`
	ChainFee  []Coin `json:"chain_fee"`
}

// IBCHeight is an IBC client height.
type IBCHeight struct {
	RevisionNumber uint64 `json:"revision_number"`
	RevisionHeight uint64 `json:"revision_height"`
}

// IBCTransfer is an ICS-20 token transfer.
type IBCTransfer struct {
	SourcePort       string     `json:"source_port"`
	SourceChannel    string     `json:"source_channel"`
	Token            []Coin     `json:"token"`
	Sender           string     `json:"sender"`
	Receiver         string     `json:"receiver"`
	TimeoutHeight    *IBCHeight `json:"timeout_height"`
	TimeoutTimestamp uint64     `json:"timeout_timestamp"`
}

func (*SendToEth) isPayload()   {}
func (*IBCTransfer) isPayload() {}

// IndexedMessage is one decoded message ready to be persisted.
type IndexedMessage struct {
	Height         uint64
	Type           MessageType
	BlockTimestamp int64
	TxHash         string
	Payload        Payload
}
