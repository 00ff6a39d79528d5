package dummy

import "github.com/trezcool/ujuzi/core"

// Logger discards everything.
type Logger struct{}

var _ core.Logger = (*Logger)(nil)

func (Logger) Debug(string, ...interface{}) {}
func (Logger) Info(string, ...interface{})  {}
func (Logger) Warn(string, ...interface{})  {}
func (Logger) Error(string, ...interface{}) {}
func (Logger) Fatal(string, ...interface{}) {}
