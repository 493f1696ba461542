package helius

import "encoding/json"

// Format identifies which known transaction record shape a Transaction
// carries. Upstream responses are heterogeneous: the enhanced API returns
// either a decoded swap event or a flat token-transfer list, while the
// getParsedTransaction RPC returns pre/post balance snapshots.
type Format int

const (
	FormatUnknown Format = iota
	// FormatSwapEvent is an enhanced transaction with a decoded events.swap.
	FormatSwapEvent
	// FormatTokenTransfers is an enhanced transaction carrying a flat
	// token-transfer list.
	FormatTokenTransfers
	// FormatBalanceSnapshot is an RPC parsed transaction with pre/post
	// token balances in its meta.
	FormatBalanceSnapshot
)

// Transaction is a raw transaction record in any of the known shapes.
// A single record may expose more than one shape; Formats lists the
// present ones in decreasing order of confidence.
type Transaction struct {
	// Enhanced API fields.
	Description          string          `json:"description,omitempty"`
	Type                 string          `json:"type,omitempty"`
	Source               string          `json:"source,omitempty"`
	Fee                  int64           `json:"fee,omitempty"`
	FeePayer             string          `json:"feePayer,omitempty"`
	Signature            string          `json:"signature,omitempty"`
	TransactionSignature string          `json:"transactionSignature,omitempty"`
	Slot                 int64           `json:"slot,omitempty"`
	Timestamp            int64           `json:"timestamp,omitempty"`
	TokenTransfers       []TokenTransfer `json:"tokenTransfers,omitempty"`
	TransactionError     *TxError        `json:"transactionError,omitempty"`
	Events               Events          `json:"events,omitempty"`

	// RPC getParsedTransaction fields.
	BlockTime int64     `json:"blockTime,omitempty"`
	Meta      *TxMeta   `json:"meta,omitempty"`
	Inner     *SignedTx `json:"transaction,omitempty"`
}

// Formats returns the shapes present in this record, highest confidence
// first. An empty slice means the record is not recognizable as a swap
// candidate in any known shape.
func (t *Transaction) Formats() []Format {
	var formats []Format
	if t.Events.Swap != nil {
		formats = append(formats, FormatSwapEvent)
	}
	if len(t.TokenTransfers) > 0 {
		formats = append(formats, FormatTokenTransfers)
	}
	if t.Meta != nil {
		formats = append(formats, FormatBalanceSnapshot)
	}
	return formats
}

// ID returns the transaction identifier, whichever field carries it.
func (t *Transaction) ID() string {
	if t.Signature != "" {
		return t.Signature
	}
	if t.TransactionSignature != "" {
		return t.TransactionSignature
	}
	if t.Inner != nil && len(t.Inner.Signatures) > 0 {
		return t.Inner.Signatures[0]
	}
	return ""
}

// UnixTime returns the record's timestamp: the explicit enhanced-API
// timestamp when present, else the RPC blockTime, else 0.
func (t *Transaction) UnixTime() int64 {
	if t.Timestamp != 0 {
		return t.Timestamp
	}
	return t.BlockTime
}

// TokenTransfer represents a token transfer between accounts.
type TokenTransfer struct {
	FromUserAccount  string  `json:"fromUserAccount"`
	ToUserAccount    string  `json:"toUserAccount"`
	FromTokenAccount string  `json:"fromTokenAccount"`
	ToTokenAccount   string  `json:"toTokenAccount"`
	TokenAmount      float64 `json:"tokenAmount"`
	Mint             string  `json:"mint"`
}

// RawTokenAmount holds a raw token amount with its decimals.
type RawTokenAmount struct {
	TokenAmount string `json:"tokenAmount"`
	Decimals    int    `json:"decimals"`
}

// TxError represents a transaction error reported by the enhanced API.
type TxError struct {
	Error string `json:"error"`
}

// Events holds the structured event data decoded upstream.
type Events struct {
	Swap *SwapEvent `json:"swap,omitempty"`
}

// SwapEvent represents a decoded swap event.
type SwapEvent struct {
	NativeInput  *NativeAmount  `json:"nativeInput"`
	NativeOutput *NativeAmount  `json:"nativeOutput"`
	TokenInputs  []SwapToken    `json:"tokenInputs"`
	TokenOutputs []SwapToken    `json:"tokenOutputs"`
	TokenFees    []SwapToken    `json:"tokenFees"`
	NativeFees   []NativeAmount `json:"nativeFees"`
}

// NativeAmount represents a native SOL amount tied to an account.
type NativeAmount struct {
	Account string `json:"account"`
	Amount  string `json:"amount"` // lamports as string
}

// SwapToken represents a token entry on one side of a swap event.
type SwapToken struct {
	UserAccount    string         `json:"userAccount"`
	TokenAccount   string         `json:"tokenAccount"`
	Mint           string         `json:"mint"`
	RawTokenAmount RawTokenAmount `json:"rawTokenAmount"`
}

// TxMeta is the meta section of a getParsedTransaction response.
type TxMeta struct {
	Err               json.RawMessage `json:"err,omitempty"`
	PreTokenBalances  []TokenBalance  `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance  `json:"postTokenBalances"`
}

// Failed reports whether the transaction's execution outcome is a failure.
func (m *TxMeta) Failed() bool {
	return len(m.Err) > 0 && string(m.Err) != "null"
}

// TokenBalance is one entry of pre/postTokenBalances.
type TokenBalance struct {
	AccountIndex  int           `json:"accountIndex"`
	Mint          string        `json:"mint"`
	Owner         string        `json:"owner"`
	UITokenAmount UITokenAmount `json:"uiTokenAmount"`
}

// UITokenAmount is a token balance with its decimal-adjusted value.
type UITokenAmount struct {
	Amount   string  `json:"amount"`
	Decimals int     `json:"decimals"`
	UIAmount float64 `json:"uiAmount"`
}

// SignedTx carries the signature list of an RPC parsed transaction.
type SignedTx struct {
	Signatures []string `json:"signatures"`
}
