package domain

// Block is a ledger block as served by the chain reader.
type Block struct {
	Height    uint64
	Timestamp int64 // unix seconds of the block header time
	Txs       [][]byte
}

// TxCount returns the number of raw transactions carried by the block.
func (b *Block) TxCount() int {
	return len(b.Txs)
}
