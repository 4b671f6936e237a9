package state

import (
	"fmt"
	"sync"

	"MarketLedger/internal/derive"
	"MarketLedger/internal/ledger"
)

// storageEscrowAddr is the derived system account that holds storage
// deposits while their records are alive.
var (
	storageEscrowOnce sync.Once
	storageEscrowAddr derive.Address
)

// StorageEscrow returns the account holding record storage deposits.
func StorageEscrow() ledger.AccountKey {
	storageEscrowOnce.Do(func() {
		addr, _, err := derive.System("storage_deposits")
		if err != nil {
			// Static seed tuple; can only fail if the derivation scheme
			// itself is broken.
			panic(fmt.Sprintf("derive storage escrow: %v", err))
		}
		storageEscrowAddr = addr
	})
	return ledger.NewSystemAccount(storageEscrowAddr)
}

// DepositToVault stages the custody legs that open a listing: the maker
// funds the listing and vault storage deposits, then the single asset
// unit moves from the maker's personal balance into the vault. The maker
// is the implied signer of the outgoing token leg, so no authority is
// presented.
func DepositToVault(plan *ledger.Plan, l *Listing, decimals uint8) error {
	makerCurrency := ledger.NewCurrencyAccount(l.Maker)
	escrow := StorageEscrow()

	if err := plan.TransferCurrency(ledger.JournalTypeStorageDeposit,
		makerCurrency, escrow, ledger.StorageDepositListing); err != nil {
		return fmt.Errorf("listing storage deposit: %w", err)
	}
	if err := plan.TransferCurrency(ledger.JournalTypeStorageDeposit,
		makerCurrency, escrow, ledger.StorageDepositVault); err != nil {
		return fmt.Errorf("vault storage deposit: %w", err)
	}

	from := ledger.NewUserAccount(l.Maker, l.Asset)
	vault := ledger.NewVaultAccount(l.Address, l.Asset)
	if err := plan.TransferToken(ledger.JournalTypeEscrowDeposit,
		l.Asset, from, vault, 1, decimals, nil); err != nil {
		return fmt.Errorf("escrow deposit: %w", err)
	}
	return nil
}

// ReleaseVault stages the custody legs that close a listing: the asset
// unit leaves the vault under the listing's derived authority, the
// emptied vault account is closed, and both storage deposits return to
// the maker. The destination differs between unlist (maker) and
// purchase (taker); the refunds always go to the maker.
func ReleaseVault(plan *ledger.Plan, l *Listing, to derive.Address, decimals uint8) error {
	vault := ledger.NewVaultAccount(l.Address, l.Asset)
	dest := ledger.NewUserAccount(to, l.Asset)
	auth := l.Authority()

	if err := plan.TransferToken(ledger.JournalTypeEscrowRelease,
		l.Asset, vault, dest, 1, decimals, &auth); err != nil {
		return fmt.Errorf("escrow release: %w", err)
	}
	if err := plan.CloseAccount(vault); err != nil {
		return fmt.Errorf("close vault: %w", err)
	}

	makerCurrency := ledger.NewCurrencyAccount(l.Maker)
	escrow := StorageEscrow()
	if err := plan.TransferCurrency(ledger.JournalTypeStorageRefund,
		escrow, makerCurrency, ledger.StorageDepositVault); err != nil {
		return fmt.Errorf("vault storage refund: %w", err)
	}
	if err := plan.TransferCurrency(ledger.JournalTypeStorageRefund,
		escrow, makerCurrency, ledger.StorageDepositListing); err != nil {
		return fmt.Errorf("listing storage refund: %w", err)
	}
	return nil
}
