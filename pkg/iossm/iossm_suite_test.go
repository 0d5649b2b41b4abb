// Copyright (c) 2023 Seagate Technology LLC and/or its Affiliates

package iossm_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestIossm(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "IOSSM Suite")
}
