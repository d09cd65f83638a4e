// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package redis

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

var _ redis.Hook = commandLogger{}

type commandLogger struct {
	logger logrus.FieldLogger
}

func (h commandLogger) BeforeProcess(ctx context.Context, cmd redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (h commandLogger) AfterProcess(ctx context.Context, cmd redis.Cmder) error {
	h.logger.WithFields(logrus.Fields{
		"cmd": cmd.Name(),
		"err": cmd.Err(),
	}).Trace("Redis command")
	return nil
}

func (h commandLogger) BeforeProcessPipeline(ctx context.Context, cmds []redis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (h commandLogger) AfterProcessPipeline(ctx context.Context, cmds []redis.Cmder) error {
	h.logger.WithFields(logrus.Fields{
		"cmds": len(cmds),
	}).Trace("Redis pipeline")
	return nil
}
