// Package output renders RESP replies for respkv-cli.
//
// The text format follows redis-cli: quoted strings, "(integer) n",
// "(nil)", "(error) ..." and numbered array items. raw prints bare values
// one per line for scripting; json and yaml map replies onto plain data.
package output
