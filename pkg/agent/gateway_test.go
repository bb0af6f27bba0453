// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGateway_SucceedsOnFirstTry(t *testing.T) {
	mock := NewMockClassifier(func(req Request) (json.RawMessage, error) {
		return json.RawMessage(`{"label":"endpoint"}`), nil
	})
	gw := NewGateway(mock, GatewayConfig{InterBatchDelay: time.Millisecond})

	raw, err := gw.Classify(context.Background(), Request{Prompt: "x", SchemaName: "triage"})
	require.NoError(t, err)
	require.JSONEq(t, `{"label":"endpoint"}`, string(raw))
}

func TestGateway_RetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	mock := NewMockClassifier(func(req Request) (json.RawMessage, error) {
		attempts++
		if attempts < 3 {
			return nil, &RetryableError{Err: errors.New("backend busy")}
		}
		return json.RawMessage(`{"label":"mount"}`), nil
	})
	gw := NewGateway(mock, GatewayConfig{InitialBackoff: time.Millisecond, InterBatchDelay: time.Millisecond})

	raw, err := gw.Classify(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.JSONEq(t, `{"label":"mount"}`, string(raw))
}

func TestGateway_ExhaustsRetriesAsHardFailure(t *testing.T) {
	mock := NewMockClassifier(func(req Request) (json.RawMessage, error) {
		return nil, &RetryableError{Err: errors.New("backend down")}
	})
	gw := NewGateway(mock, GatewayConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, InterBatchDelay: time.Millisecond})

	_, err := gw.Classify(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	var hard *HardFailure
	require.ErrorAs(t, err, &hard)
}

func TestGateway_NonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	mock := NewMockClassifier(func(req Request) (json.RawMessage, error) {
		attempts++
		return nil, errors.New("bad request")
	})
	gw := NewGateway(mock, GatewayConfig{InterBatchDelay: time.Millisecond})

	_, err := gw.Classify(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestClassifyBatches_SplitsAndPreservesOrder(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}
	var seenBatchSizes []int
	out, err := ClassifyBatches(context.Background(), items, 10, func(ctx context.Context, batch []int) ([]int, error) {
		seenBatchSizes = append(seenBatchSizes, len(batch))
		return batch, nil
	})
	require.NoError(t, err)
	require.Equal(t, items, out)
	require.Equal(t, []int{10, 10, 5}, seenBatchSizes)
}

func TestDecodeStrict_RejectsUnknownFields(t *testing.T) {
	type label struct {
		Label string `json:"label"`
	}
	_, err := DecodeStrict[label]("triage", json.RawMessage(`{"label":"endpoint","extra":1}`))
	require.Error(t, err)
	var violation *SchemaViolation
	require.ErrorAs(t, err, &violation)
}

func TestDecodeStrict_AcceptsMatchingShape(t *testing.T) {
	type label struct {
		Label string `json:"label"`
	}
	out, err := DecodeStrict[label]("triage", json.RawMessage(`{"label":"endpoint"}`))
	require.NoError(t, err)
	require.Equal(t, "endpoint", out.Label)
}
