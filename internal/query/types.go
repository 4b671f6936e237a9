package query

// BalanceResponse is one projected account balance.
type BalanceResponse struct {
	AccountPath  string `json:"account_path"`
	Asset        string `json:"asset"`
	Balance      int64  `json:"balance"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// MarketplaceResponse is a projected marketplace row.
type MarketplaceResponse struct {
	Name            string `json:"name"`
	Address         string `json:"address"`
	Treasury        string `json:"treasury"`
	Admin           string `json:"admin"`
	FeeBps          uint16 `json:"fee_bps"`
	CreatedSequence int64  `json:"created_sequence"`
	AsOfSequence    int64  `json:"as_of_sequence"`
}

// ListingResponse is a projected listing row.
type ListingResponse struct {
	Listing        string `json:"listing"`
	Marketplace    string `json:"marketplace"`
	Maker          string `json:"maker"`
	Asset          string `json:"asset"`
	Price          int64  `json:"price"`
	Status         string `json:"status"`
	OpenedSequence int64  `json:"opened_sequence"`
	OpenedAtUs     int64  `json:"opened_at_us"`
	ClosedSequence *int64 `json:"closed_sequence,omitempty"`
	AsOfSequence   int64  `json:"as_of_sequence"`
}

// SaleResponse is a projected settled purchase.
type SaleResponse struct {
	Sequence     int64  `json:"sequence"`
	Marketplace  string `json:"marketplace"`
	Listing      string `json:"listing"`
	Asset        string `json:"asset"`
	Taker        string `json:"taker"`
	Price        int64  `json:"price"`
	Fee          int64  `json:"fee"`
	ToMaker      int64  `json:"to_maker"`
	SoldAtUs     int64  `json:"sold_at_us"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// JournalHistoryEntry is a journal leg from the durable log.
type JournalHistoryEntry struct {
	JournalID     string `json:"journal_id"`
	BatchID       string `json:"batch_id"`
	OpRef         string `json:"op_ref"`
	Sequence      int64  `json:"sequence"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	Asset         string `json:"asset"`
	Amount        int64  `json:"amount"`
	JournalType   string `json:"journal_type"`
	Timestamp     int64  `json:"timestamp"`
}

// OpHistoryEntry is one row of the operation log.
type OpHistoryEntry struct {
	Sequence       int64  `json:"sequence"`
	OpType         string `json:"op_type"`
	IdempotencyKey string `json:"idempotency_key"`
	Marketplace    string `json:"marketplace,omitempty"`
	StateHash      string `json:"state_hash"`
	Timestamp      int64  `json:"timestamp_us"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy        bool              `json:"is_healthy"`
	HashChainBreaks  []int64           `json:"hash_chain_breaks,omitempty"`
	UnbalancedAssets []UnbalancedAsset `json:"unbalanced_assets,omitempty"`
}

// UnbalancedAsset is an asset whose balances do not sum to zero across
// all accounts, which should be impossible for double-entry journals.
type UnbalancedAsset struct {
	Asset     string `json:"asset"`
	Imbalance int64  `json:"imbalance"`
}
