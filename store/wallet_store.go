package store

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	nctree "github.com/bnb-chain/zkbnb-nctree"
	"github.com/bnb-chain/zkbnb-nctree/database"
	"github.com/bnb-chain/zkbnb-nctree/wallet"
)

// WalletStore persists the note position state of wallets, one key per
// shielded pool.
type WalletStore struct {
	db database.TreeDB
}

func NewWalletStore(db database.TreeDB) *WalletStore {
	return &WalletStore{db: db}
}

func walletKey(pool nctree.Pool) []byte {
	return []byte(fmt.Sprintf("wallet:%s", pool))
}

// Saved reports whether state has been saved for pool.
func (s *WalletStore) Saved(pool nctree.Pool) (bool, error) {
	ok, err := s.db.Has(walletKey(pool))
	if err != nil {
		return false, errors.Wrap(err, "look up wallet state")
	}
	return ok, nil
}

// Save writes the wallet's note position state.
func (s *WalletStore) Save(w *wallet.Wallet) error {
	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		return err
	}
	if err := s.db.Set(walletKey(w.Pool()), buf.Bytes()); err != nil {
		return errors.Wrap(err, "save wallet state")
	}
	log.WithFields(logrus.Fields{
		"pool":  w.Pool(),
		"bytes": buf.Len(),
	}).Debug("Saved wallet note commitment state")
	return nil
}

// Load restores the wallet's note position state, reporting false if none
// has been saved for its pool.
func (s *WalletStore) Load(w *wallet.Wallet) (bool, error) {
	data, err := s.db.Get(walletKey(w.Pool()))
	if errors.Is(err, database.ErrDatabaseNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "load wallet state")
	}
	if err := w.Read(bytes.NewReader(data)); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the saved state of the wallet's pool.
func (s *WalletStore) Delete(w *wallet.Wallet) error {
	return s.db.Delete(walletKey(w.Pool()))
}
