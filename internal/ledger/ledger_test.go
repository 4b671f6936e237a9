package ledger_test

import (
	"errors"
	"testing"

	"MarketLedger/internal/derive"
	"MarketLedger/internal/ledger"

	"github.com/google/uuid"
)

func userAddr(t *testing.T, tag string) derive.Address {
	t.Helper()
	addr, _, err := derive.Derive([]byte("test-user"), []byte(tag))
	if err != nil {
		t.Fatalf("derive user: %v", err)
	}
	return addr
}

func newAsset(t *testing.T, book *ledger.AssetBook, tag string, decimals uint8) derive.Address {
	t.Helper()
	addr, bump, err := derive.Mint(tag)
	if err != nil {
		t.Fatalf("derive mint: %v", err)
	}
	err = book.Create(ledger.AssetInfo{
		Address:       addr,
		Bump:          bump,
		Decimals:      decimals,
		MintAuthority: userAddr(t, "issuer"),
	})
	if err != nil {
		t.Fatalf("create asset: %v", err)
	}
	return addr
}

// ============================================================================
// Test: AccountKey
// ============================================================================

func TestAccountKey_Paths(t *testing.T) {
	holder := userAddr(t, "alice")

	currency := ledger.NewCurrencyAccount(holder)
	want := "user:" + holder.String() + ":native"
	if currency.AccountPath() != want {
		t.Errorf("got %q, want %q", currency.AccountPath(), want)
	}

	asset := userAddr(t, "asset")
	vault := ledger.NewVaultAccount(holder, asset)
	want = "derived:" + holder.String() + ":" + asset.String()
	if vault.AccountPath() != want {
		t.Errorf("got %q, want %q", vault.AccountPath(), want)
	}
}

func TestExternalAccount_ReservedPrefix(t *testing.T) {
	ext := ledger.NewExternalAccount(ledger.ExternalDeposits, ledger.NativeAsset)
	if ext.Holder[0] != 0xff {
		t.Error("external holders must live in the reserved prefix")
	}
}

// ============================================================================
// Test: BalanceTracker
// ============================================================================

func TestBalanceTracker_InitialBalanceZero(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	if bal := bt.CurrencyBalance(userAddr(t, "nobody")); bal != 0 {
		t.Errorf("initial balance should be 0, got %d", bal)
	}
}

func TestBalanceTracker_ApplyJournal(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	alice := userAddr(t, "alice")

	j := ledger.Journal{
		JournalID:     uuid.New(),
		BatchID:       uuid.New(),
		DebitAccount:  ledger.NewCurrencyAccount(alice),
		CreditAccount: ledger.NewExternalAccount(ledger.ExternalDeposits, ledger.NativeAsset),
		Amount:        1_000_000,
		JournalType:   ledger.JournalTypeDeposit,
	}
	bt.ApplyJournal(j)

	if bal := bt.CurrencyBalance(alice); bal != 1_000_000 {
		t.Errorf("balance after deposit: got %d, want 1000000", bal)
	}
	// Double entry: the external side went negative by the same amount.
	if bal := bt.GetBalance(j.CreditAccount); bal != -1_000_000 {
		t.Errorf("external side: got %d, want -1000000", bal)
	}
}

func TestBalanceTracker_RemoveNonEmptyFails(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	alice := userAddr(t, "alice")
	bt.ApplyJournal(ledger.Journal{
		JournalID:     uuid.New(),
		DebitAccount:  ledger.NewCurrencyAccount(alice),
		CreditAccount: ledger.NewExternalAccount(ledger.ExternalDeposits, ledger.NativeAsset),
		Amount:        5,
	})

	if err := bt.Remove(ledger.NewCurrencyAccount(alice)); err == nil {
		t.Error("removing a funded account must fail")
	}
}

func TestBalanceTracker_ExportRestore(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	alice := userAddr(t, "alice")
	bob := userAddr(t, "bob")
	bt.ApplyJournal(ledger.Journal{
		JournalID:     uuid.New(),
		DebitAccount:  ledger.NewCurrencyAccount(alice),
		CreditAccount: ledger.NewCurrencyAccount(bob),
		Amount:        42,
	})

	snaps := bt.Export()
	restored := ledger.NewBalanceTracker()
	if err := restored.Restore(snaps); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.CurrencyBalance(alice) != 42 || restored.CurrencyBalance(bob) != -42 {
		t.Errorf("restored balances wrong: alice=%d bob=%d",
			restored.CurrencyBalance(alice), restored.CurrencyBalance(bob))
	}
}

// ============================================================================
// Test: Batch validation
// ============================================================================

func TestBatch_RejectsNonPositiveAmount(t *testing.T) {
	batchID := uuid.New()
	alice := userAddr(t, "alice")
	bob := userAddr(t, "bob")
	b := &ledger.Batch{
		BatchID: batchID,
		Journals: []ledger.Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			DebitAccount:  ledger.NewCurrencyAccount(alice),
			CreditAccount: ledger.NewCurrencyAccount(bob),
			Amount:        0,
		}},
	}
	if err := b.Validate(); err == nil {
		t.Error("zero amount must be rejected")
	}
}

func TestBatch_RejectsSelfTransfer(t *testing.T) {
	batchID := uuid.New()
	alice := ledger.NewCurrencyAccount(userAddr(t, "alice"))
	b := &ledger.Batch{
		BatchID: batchID,
		Journals: []ledger.Journal{{
			JournalID:     uuid.New(),
			BatchID:       batchID,
			DebitAccount:  alice,
			CreditAccount: alice,
			Amount:        10,
		}},
	}
	if err := b.Validate(); err == nil {
		t.Error("self transfer must be rejected")
	}
}

// ============================================================================
// Test: Plan — currency legs
// ============================================================================

func fundedTracker(t *testing.T, holder derive.Address, amount int64) *ledger.BalanceTracker {
	t.Helper()
	bt := ledger.NewBalanceTracker()
	bt.ApplyJournal(ledger.Journal{
		JournalID:     uuid.New(),
		DebitAccount:  ledger.NewCurrencyAccount(holder),
		CreditAccount: ledger.NewExternalAccount(ledger.ExternalDeposits, ledger.NativeAsset),
		Amount:        amount,
		JournalType:   ledger.JournalTypeDeposit,
	})
	return bt
}

func TestPlan_InsufficientFunds(t *testing.T) {
	alice := userAddr(t, "alice")
	bob := userAddr(t, "bob")
	bt := fundedTracker(t, alice, 100)
	plan := ledger.NewPlan(bt, ledger.NewAssetBook(), "op-1", 1, 0)

	err := plan.TransferCurrency(ledger.JournalTypePayment,
		ledger.NewCurrencyAccount(alice), ledger.NewCurrencyAccount(bob), 101)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Errorf("want ErrInsufficientFunds, got %v", err)
	}

	// Nothing staged applied: balance unchanged.
	if bal := bt.CurrencyBalance(alice); bal != 100 {
		t.Errorf("balance changed on failed plan: %d", bal)
	}
}

func TestPlan_MultiLegUsesEffectiveBalance(t *testing.T) {
	alice := userAddr(t, "alice")
	bob := userAddr(t, "bob")
	carol := userAddr(t, "carol")
	bt := fundedTracker(t, alice, 100)
	plan := ledger.NewPlan(bt, ledger.NewAssetBook(), "op-1", 1, 0)

	if err := plan.TransferCurrency(ledger.JournalTypePayment,
		ledger.NewCurrencyAccount(alice), ledger.NewCurrencyAccount(bob), 60); err != nil {
		t.Fatalf("first leg: %v", err)
	}

	// Second leg must see only the 40 remaining after the first leg.
	err := plan.TransferCurrency(ledger.JournalTypeFee,
		ledger.NewCurrencyAccount(alice), ledger.NewCurrencyAccount(carol), 41)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Errorf("second leg must fail against effective balance, got %v", err)
	}
}

func TestPlan_CommitAppliesAllLegs(t *testing.T) {
	alice := userAddr(t, "alice")
	bob := userAddr(t, "bob")
	carol := userAddr(t, "carol")
	bt := fundedTracker(t, alice, 100)
	plan := ledger.NewPlan(bt, ledger.NewAssetBook(), "op-1", 1, 0)

	if err := plan.TransferCurrency(ledger.JournalTypePayment,
		ledger.NewCurrencyAccount(alice), ledger.NewCurrencyAccount(bob), 60); err != nil {
		t.Fatalf("leg 1: %v", err)
	}
	if err := plan.TransferCurrency(ledger.JournalTypeFee,
		ledger.NewCurrencyAccount(alice), ledger.NewCurrencyAccount(carol), 40); err != nil {
		t.Fatalf("leg 2: %v", err)
	}
	if err := plan.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if bt.CurrencyBalance(alice) != 0 || bt.CurrencyBalance(bob) != 60 || bt.CurrencyBalance(carol) != 40 {
		t.Errorf("post-commit balances: alice=%d bob=%d carol=%d",
			bt.CurrencyBalance(alice), bt.CurrencyBalance(bob), bt.CurrencyBalance(carol))
	}
	if err := bt.ValidateNonNegative(); err != nil {
		t.Errorf("invariant: %v", err)
	}
}

// ============================================================================
// Test: Plan — token legs and custody authority
// ============================================================================

func TestPlan_TokenTransferUnknownAsset(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	book := ledger.NewAssetBook()
	ghost := userAddr(t, "ghost-asset")
	alice := userAddr(t, "alice")
	bob := userAddr(t, "bob")

	plan := ledger.NewPlan(bt, book, "op-1", 1, 0)
	err := plan.TransferToken(ledger.JournalTypeEscrowDeposit, ghost,
		ledger.NewUserAccount(alice, ghost), ledger.NewUserAccount(bob, ghost), 1, 0, nil)
	if !errors.Is(err, ledger.ErrUnknownAsset) {
		t.Errorf("want ErrUnknownAsset, got %v", err)
	}
}

func TestPlan_TokenTransferDecimalsMismatch(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	book := ledger.NewAssetBook()
	asset := newAsset(t, book, "dec-check", 0)
	alice := userAddr(t, "alice")
	bob := userAddr(t, "bob")

	plan := ledger.NewPlan(bt, book, "op-1", 1, 0)
	err := plan.TransferToken(ledger.JournalTypeEscrowDeposit, asset,
		ledger.NewUserAccount(alice, asset), ledger.NewUserAccount(bob, asset), 1, 6, nil)
	if !errors.Is(err, ledger.ErrDecimalsMismatch) {
		t.Errorf("want ErrDecimalsMismatch, got %v", err)
	}
}

func TestPlan_VaultWithdrawalRequiresAuthority(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	book := ledger.NewAssetBook()

	mkt, _, _ := derive.Marketplace("Custody Market")
	asset := newAsset(t, book, "custody-asset", 0)
	listing, bump, err := derive.Listing(mkt, asset)
	if err != nil {
		t.Fatalf("derive listing: %v", err)
	}
	maker := userAddr(t, "maker")

	// Put one unit in the vault directly.
	bt.ApplyJournal(ledger.Journal{
		JournalID:     uuid.New(),
		DebitAccount:  ledger.NewVaultAccount(listing, asset),
		CreditAccount: ledger.NewExternalAccount(ledger.ExternalIssuance, asset),
		Amount:        1,
	})

	vault := ledger.NewVaultAccount(listing, asset)
	dest := ledger.NewUserAccount(maker, asset)

	// No authority: rejected.
	plan := ledger.NewPlan(bt, book, "op-1", 1, 0)
	err = plan.TransferToken(ledger.JournalTypeEscrowRelease, asset, vault, dest, 1, 0, nil)
	if !errors.Is(err, ledger.ErrMissingAuthority) {
		t.Errorf("want ErrMissingAuthority, got %v", err)
	}

	// Wrong seeds: rejected as forged reference.
	other, _, _ := derive.Mint("some-other-asset")
	forged := derive.ListingAuthority(mkt, other, bump)
	err = plan.TransferToken(ledger.JournalTypeEscrowRelease, asset, vault, dest, 1, 0, &forged)
	if !errors.Is(err, ledger.ErrAuthorityMismatch) {
		t.Errorf("want ErrAuthorityMismatch, got %v", err)
	}

	// Correct authority: accepted and committable.
	auth := derive.ListingAuthority(mkt, asset, bump)
	if err := plan.TransferToken(ledger.JournalTypeEscrowRelease, asset, vault, dest, 1, 0, &auth); err != nil {
		t.Fatalf("authorized transfer: %v", err)
	}
	if err := plan.CloseAccount(vault); err != nil {
		t.Fatalf("close vault: %v", err)
	}
	if err := plan.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if bt.TokenBalance(maker, asset) != 1 {
		t.Errorf("maker token balance: got %d, want 1", bt.TokenBalance(maker, asset))
	}
	if bt.VaultBalance(listing, asset) != 0 {
		t.Errorf("vault not drained: %d", bt.VaultBalance(listing, asset))
	}
}

func TestPlan_CloseNonEmptyAccountFails(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	book := ledger.NewAssetBook()
	asset := newAsset(t, book, "stuck-asset", 0)
	listing := userAddr(t, "listing")

	bt.ApplyJournal(ledger.Journal{
		JournalID:     uuid.New(),
		DebitAccount:  ledger.NewVaultAccount(listing, asset),
		CreditAccount: ledger.NewExternalAccount(ledger.ExternalIssuance, asset),
		Amount:        1,
	})

	plan := ledger.NewPlan(bt, book, "op-1", 1, 0)
	err := plan.CloseAccount(ledger.NewVaultAccount(listing, asset))
	if !errors.Is(err, ledger.ErrAccountNotEmpty) {
		t.Errorf("want ErrAccountNotEmpty, got %v", err)
	}
}

func TestPlan_MintToken(t *testing.T) {
	bt := ledger.NewBalanceTracker()
	book := ledger.NewAssetBook()
	asset := newAsset(t, book, "minted-asset", 0)
	issuer := userAddr(t, "issuer")

	plan := ledger.NewPlan(bt, book, "op-1", 1, 0)
	if err := plan.MintToken(asset, ledger.NewUserAccount(issuer, asset), 1); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := plan.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if bt.TokenBalance(issuer, asset) != 1 {
		t.Errorf("issuer balance: got %d, want 1", bt.TokenBalance(issuer, asset))
	}
}
