// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package redis

import (
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// An Option configures a *Database
type Option interface {
	Apply(*Database)
}

// OptionFunc is a function that configures a *Database
type OptionFunc func(*Database)

// Apply is a function that set value to *Database
func (f OptionFunc) Apply(engine *Database) {
	f(engine)
}

func WithHooks(hooks ...redis.Hook) Option {
	return OptionFunc(func(db *Database) {
		if db.db == nil {
			return
		}
		for _, hook := range hooks {
			db.db.AddHook(hook)
		}
	})
}

// WithCommandLog logs every command at trace level.
func WithCommandLog(logger logrus.FieldLogger) Option {
	return WithHooks(commandLogger{logger: logger})
}
