package wallet

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "wallet")
