// Package models defines the FDX v6 resource shapes this service serves.
// The data is mock provider data; shapes follow the FDX API surface closely
// enough for data recipients to exercise real integrations against it.
package models

import "time"

// Account is a deposit account as exposed by the accounts endpoints.
type Account struct {
	AccountID            string  `json:"accountId"`
	AccountType          string  `json:"accountType"`
	Nickname             string  `json:"nickname,omitempty"`
	Status               string  `json:"status"`
	Currency             string  `json:"currency"`
	AccountNumberDisplay string  `json:"accountNumberDisplay"`
	CurrentBalance       float64 `json:"currentBalance"`
	AvailableBalance     float64 `json:"availableBalance"`
}

// Transaction is a posted or pending account transaction.
type Transaction struct {
	TransactionID   string    `json:"transactionId"`
	AccountID       string    `json:"accountId"`
	PostedTimestamp time.Time `json:"postedTimestamp"`
	Description     string    `json:"description"`
	Amount          float64   `json:"amount"`
	DebitCreditMemo string    `json:"debitCreditMemo"`
	Category        string    `json:"category,omitempty"`
	Status          string    `json:"status"`
}

// Statement is a periodic account statement descriptor.
type Statement struct {
	StatementID string    `json:"statementId"`
	AccountID   string    `json:"accountId"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Description string    `json:"description"`
}

// Contact is the holder contact information attached to an account.
type Contact struct {
	AccountID string   `json:"accountId"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Telephone string   `json:"telephone,omitempty"`
	Address   *Address `json:"address,omitempty"`
}

// Address is a postal address.
type Address struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// PaymentNetwork describes how an account participates in a transfer
// network.
type PaymentNetwork struct {
	AccountID         string `json:"accountId"`
	Type              string `json:"type"`
	BankID            string `json:"bankId"`
	IdentifierDisplay string `json:"identifierDisplay"`
	TransferIn        bool   `json:"transferIn"`
	TransferOut       bool   `json:"transferOut"`
}
