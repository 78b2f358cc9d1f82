// Package config loads the settings shared by the housekeeper Lambda and the
// operator CLI.
//
// Settings come from an embedded YAML document whose values can be
// overridden through environment variables using ${VAR:default} expansion.
// A second YAML file named by HOUSEKEEPER_CONFIG, if set, is merged on top of
// the defaults.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := storage.New(ctx, cfg.AWS.StorageOptions()...)
package config
