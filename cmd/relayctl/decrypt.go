package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mikey/llm-dm-relay/internal/adapters/sealed"
	"github.com/spf13/cobra"
)

// drainedRecord mirrors one entry of a drain response
type drainedRecord struct {
	SenderID  string `json:"sender_id"`
	Message   string `json:"message"`
	Intent    string `json:"intent"`
	Timestamp string `json:"timestamp"`
}

type drainedResponse struct {
	DBDetails []drainedRecord `json:"db_details"`
}

func newDecryptCmd() *cobra.Command {
	var identity, file string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a drain response with a tenant identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := loadIdentity(identity)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open drain file: %w", err)
				}
				defer f.Close()
				in = f
			}

			records, err := decryptDrain(in, key)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(drainedResponse{DBDetails: records})
		},
	}

	cmd.Flags().StringVarP(&identity, "identity", "i", "", "age identity (AGE-SECRET-KEY-1...) or a file containing it")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Drain response JSON (default stdin)")
	_ = cmd.MarkFlagRequired("identity")
	return cmd
}

// loadIdentity accepts an identity literal or the path of an identity file,
// skipping comment lines as written by keygen
func loadIdentity(value string) (string, error) {
	if strings.HasPrefix(value, "AGE-SECRET-KEY-") {
		return value, nil
	}

	f, err := os.Open(value)
	if err != nil {
		return "", fmt.Errorf("open identity file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read identity file: %w", err)
	}
	return "", fmt.Errorf("no identity found in %s", value)
}

// decryptDrain decodes a drain response and decrypts every ciphertext field
func decryptDrain(r io.Reader, identity string) ([]drainedRecord, error) {
	var resp drainedResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode drain response: %w", err)
	}

	out := make([]drainedRecord, 0, len(resp.DBDetails))
	for i, rec := range resp.DBDetails {
		plain := drainedRecord{Timestamp: rec.Timestamp}
		for _, f := range []struct {
			dst *string
			src string
		}{
			{&plain.SenderID, rec.SenderID},
			{&plain.Message, rec.Message},
			{&plain.Intent, rec.Intent},
		} {
			b, err := sealed.Decrypt(f.src, identity)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			*f.dst = string(b)
		}
		out = append(out, plain)
	}
	return out, nil
}
