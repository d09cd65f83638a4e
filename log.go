package nctree

import "github.com/sirupsen/logrus"

var log = logrus.WithField("prefix", "nctree")
