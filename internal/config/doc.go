// Package config loads notireport configuration.
//
// Values come from three sources, later ones winning:
//
//  1. Default()
//  2. a YAML file (NOTIREPORT_CONFIG_FILE, notireport.yaml or configs/notireport.yaml)
//  3. environment variables, optionally seeded from a .env file
//
// Environment variables follow the NOTIREPORT_<SECTION>_<FIELD> pattern:
//
//	NOTIREPORT_SERVER_PORT=8080
//	NOTIREPORT_LOGGING_LEVEL=debug
//	NOTIREPORT_REPORT_LOCALE=es
//	NOTIREPORT_REPORT_COMPARE_NOTIFIERS="ARL SURA,COLPENSIONES"
//
// Layout constants (fills, anchors, sheet names) live in constants.go and are
// the single place table styling is defined.
package config
