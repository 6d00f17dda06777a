package store

import (
	"time"

	"github.com/markcoleman/Aggregator-the-agitator/internal/fdx/models"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
)

// SeedDemoData loads a deterministic mock dataset for local development: two
// subjects with checking and savings accounts, transactions, statements,
// holder contacts, and ACH network entries. Identifiers line up with the
// tokens cmd/tokengen mints by default.
func SeedDemoData(s *InMemoryStore) {
	seedAlice(s)
	seedBob(s)
}

func seedAlice(s *InMemoryStore) {
	subject := id.SubjectID("user-123")

	s.LoadAccount(subject, &models.Account{
		AccountID:            "acc-001",
		AccountType:          "CHECKING",
		Nickname:             "Everyday Checking",
		Status:               "OPEN",
		Currency:             "USD",
		AccountNumberDisplay: "****4821",
		CurrentBalance:       2543.17,
		AvailableBalance:     2410.92,
	})
	s.LoadAccount(subject, &models.Account{
		AccountID:            "acc-002",
		AccountType:          "SAVINGS",
		Nickname:             "Rainy Day",
		Status:               "OPEN",
		Currency:             "USD",
		AccountNumberDisplay: "****7733",
		CurrentBalance:       15200.00,
		AvailableBalance:     15200.00,
	})

	s.LoadTransactions(subject, "acc-001",
		&models.Transaction{
			TransactionID:   "txn-1001",
			AccountID:       "acc-001",
			PostedTimestamp: time.Date(2026, 2, 27, 14, 5, 0, 0, time.UTC),
			Description:     "COFFEE ROASTERS #42",
			Amount:          6.75,
			DebitCreditMemo: "DEBIT",
			Category:        "DINING",
			Status:          "POSTED",
		},
		&models.Transaction{
			TransactionID:   "txn-1002",
			AccountID:       "acc-001",
			PostedTimestamp: time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC),
			Description:     "PAYROLL ACME CORP",
			Amount:          1850.00,
			DebitCreditMemo: "CREDIT",
			Category:        "INCOME",
			Status:          "POSTED",
		},
		&models.Transaction{
			TransactionID:   "txn-1003",
			AccountID:       "acc-001",
			PostedTimestamp: time.Date(2026, 3, 1, 18, 22, 0, 0, time.UTC),
			Description:     "GROCERY MART",
			Amount:          84.31,
			DebitCreditMemo: "DEBIT",
			Category:        "GROCERIES",
			Status:          "POSTED",
		},
	)
	s.LoadTransactions(subject, "acc-002",
		&models.Transaction{
			TransactionID:   "txn-2001",
			AccountID:       "acc-002",
			PostedTimestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			Description:     "INTEREST PAYMENT",
			Amount:          12.67,
			DebitCreditMemo: "CREDIT",
			Category:        "INTEREST",
			Status:          "POSTED",
		},
	)

	s.LoadStatements(subject, "acc-001",
		&models.Statement{
			StatementID: "stmt-001",
			AccountID:   "acc-001",
			StartDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
			Description: "January 2026 statement",
		},
		&models.Statement{
			StatementID: "stmt-002",
			AccountID:   "acc-001",
			StartDate:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
			Description: "February 2026 statement",
		},
	)

	s.LoadContact(subject, "acc-001", &models.Contact{
		AccountID: "acc-001",
		Name:      "Alice Example",
		Email:     "alice@example.com",
		Telephone: "+1-555-0100",
		Address: &models.Address{
			Line1:      "1 Main St",
			City:       "Springfield",
			Region:     "IL",
			PostalCode: "62701",
			Country:    "US",
		},
	})
	s.LoadContact(subject, "acc-002", &models.Contact{
		AccountID: "acc-002",
		Name:      "Alice Example",
		Email:     "alice@example.com",
	})

	s.LoadPaymentNetwork(subject, &models.PaymentNetwork{
		AccountID:         "acc-001",
		Type:              "US_ACH",
		BankID:            "071000013",
		IdentifierDisplay: "****4821",
		TransferIn:        true,
		TransferOut:       true,
	})
	s.LoadPaymentNetwork(subject, &models.PaymentNetwork{
		AccountID:         "acc-002",
		Type:              "US_ACH",
		BankID:            "071000013",
		IdentifierDisplay: "****7733",
		TransferIn:        true,
		TransferOut:       false,
	})
}

func seedBob(s *InMemoryStore) {
	subject := id.SubjectID("user-456")

	s.LoadAccount(subject, &models.Account{
		AccountID:            "acc-101",
		AccountType:          "CHECKING",
		Nickname:             "Primary",
		Status:               "OPEN",
		Currency:             "USD",
		AccountNumberDisplay: "****9150",
		CurrentBalance:       731.44,
		AvailableBalance:     701.44,
	})

	s.LoadTransactions(subject, "acc-101",
		&models.Transaction{
			TransactionID:   "txn-3001",
			AccountID:       "acc-101",
			PostedTimestamp: time.Date(2026, 3, 2, 11, 40, 0, 0, time.UTC),
			Description:     "TRANSIT PASS",
			Amount:          95.00,
			DebitCreditMemo: "DEBIT",
			Category:        "TRANSPORT",
			Status:          "POSTED",
		},
	)

	s.LoadStatements(subject, "acc-101",
		&models.Statement{
			StatementID: "stmt-101",
			AccountID:   "acc-101",
			StartDate:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
			Description: "February 2026 statement",
		},
	)

	s.LoadContact(subject, "acc-101", &models.Contact{
		AccountID: "acc-101",
		Name:      "Bob Example",
		Email:     "bob@example.com",
	})

	s.LoadPaymentNetwork(subject, &models.PaymentNetwork{
		AccountID:         "acc-101",
		Type:              "US_ACH",
		BankID:            "071000013",
		IdentifierDisplay: "****9150",
		TransferIn:        true,
		TransferOut:       true,
	})
}
