// Package config handles YAML configuration loading for the eod-fetch tool,
// with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable
// interpolation, so access keys can stay out of files:
//
//	provider:
//	  access_key: ${MARKETSTACK_ACCESS_KEY}
//	  plan: basic
//	query:
//	  symbols: [AAPL, MSFT]
//	  date_from: 2021-01-04
//	  date_to: 2021-04-09
package config
