// Package core contains the BankID domain types, the order and collect codecs,
// the QR rotation code generator, the action registry and the transaction
// lifecycle engine. Transport and storage adapters depend on this package;
// core must not depend on them.
package core
