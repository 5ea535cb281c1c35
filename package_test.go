// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

//go:generate go run go.uber.org/mock/mockgen -package rpcproxy -destination sender_mock_test.go github.com/luxfi/rpcproxy Sender
