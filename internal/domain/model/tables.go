package model

// AutoMigrate 対象
var Tables = []interface{}{
	&Shop{},
	&Product{},
	&Transaction{},
	&LedgerGap{},
}
