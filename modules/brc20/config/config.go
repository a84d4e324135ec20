package config

type Config struct {
	Datasource  string   `mapstructure:"datasource"`   // Datasource to fetch bitcoin data e.g. `bitcoin-node`
	Database    string   `mapstructure:"database"`     // Database to store data e.g. `leveldb`
	APIHandlers []string `mapstructure:"api_handlers"` // List of API handlers to enable. (e.g. `http`)

	LevelDB LevelDBConfig `mapstructure:"leveldb"`

	// BridgeContract is the hex address of the contract allowed to call the
	// ledger-adjust native. Empty disables the native.
	BridgeContract string `mapstructure:"bridge_contract"`
}

type LevelDBConfig struct {
	Path string `mapstructure:"path"` // Directory for LevelDB data files.
}
