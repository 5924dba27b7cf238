package main

import (
	"fmt"
	"os"

	errorsmod "cosmossdk.io/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		codespace, code, _ := errorsmod.ABCIInfo(err, false)
		logrus.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "Error [%s:%d]: %v\n", codespace, code, err)
		os.Exit(1)
	}
}
