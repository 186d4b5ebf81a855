package model

// Collection names, used as the first segment of every document key.
const (
	CollectionAccounts        = "accounts"
	CollectionActivationCodes = "activation_codes"
	CollectionComputers       = "computers"
	CollectionDirectories     = "directories"
	CollectionFiles           = "files"
	CollectionFileData        = "file_data"
	CollectionAccountLogs     = "account_logs"
)
