/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package sheets reads and writes the subscription spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"

	"github.com/thayfamily/checklive/internal/retry"
)

// Columns is the range fetched from every table.
const Columns = "A:G"

type Store struct {
	svc           *sheets.Service
	spreadsheetID string
	policy        retry.Policy
}

func New(svc *sheets.Service, spreadsheetID string) *Store {
	return &Store{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		policy: retry.Policy{
			Attempts:  3,
			Delay:     200 * time.Millisecond,
			MaxDelay:  2 * time.Second,
			Backoff:   true,
			Retryable: transient,
		},
	}
}

// A1 builds a range reference, quoting the table name.
func A1(table, ref string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(table, "'", "''"), ref)
}

// transient reports whether the API error is worth another try.
func transient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return false
}

// Rows returns a fresh snapshot of the table, every cell rendered as a string. Header rows
// are included; callers skip them.
func (s *Store) Rows(ctx context.Context, table string) ([][]string, error) {
	p := s.policy
	p.Name = "read " + table

	var resp *sheets.ValueRange
	err := retry.Do(ctx, p, func(int) error {
		var err error
		resp, err = s.svc.Spreadsheets.Values.Get(s.spreadsheetID, A1(table, Columns)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", table, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, v := range raw {
			if v != nil {
				row[i] = fmt.Sprint(v)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// UpdateCell writes one value into cell (A1 notation, e.g. "G12") of table.
func (s *Store) UpdateCell(ctx context.Context, table, cell, value string) error {
	rng := A1(table, cell)
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &sheets.ValueRange{
		Values: [][]interface{}{{value}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	logrus.WithFields(logrus.Fields{"range": rng, "value": value}).Info("sheet cell updated")
	return nil
}
