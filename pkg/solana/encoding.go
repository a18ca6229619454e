package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/solana/shortvec"
)

func (t Transaction) Marshal() []byte {
	var b bytes.Buffer

	writeLen(&b, len(t.Signatures))
	for _, s := range t.Signatures {
		b.Write(s[:])
	}
	b.Write(t.Message.Marshal())

	return b.Bytes()
}

func (t *Transaction) Unmarshal(b []byte) error {
	if len(b) > MaxTransactionSize {
		return errors.Errorf("transaction exceeds max size of %d bytes", MaxTransactionSize)
	}

	r := &wireReader{buf: bytes.NewBuffer(b)}

	t.Signatures = make([]Signature, r.len("signatures"))
	for i := range t.Signatures {
		r.full(t.Signatures[i][:], "signature")
	}
	if r.err != nil {
		return r.err
	}

	return t.Message.Unmarshal(r.buf.Bytes())
}

func (m Message) Marshal() []byte {
	var b bytes.Buffer

	b.Write([]byte{m.Header.NumSignatures, m.Header.NumReadonlySigned, m.Header.NumReadOnly})

	writeLen(&b, len(m.Accounts))
	for _, account := range m.Accounts {
		b.Write(account)
	}

	b.Write(m.RecentBlockhash[:])

	writeLen(&b, len(m.Instructions))
	for _, ix := range m.Instructions {
		b.WriteByte(ix.ProgramIndex)
		writeLen(&b, len(ix.Accounts))
		b.Write(ix.Accounts)
		writeLen(&b, len(ix.Data))
		b.Write(ix.Data)
	}

	return b.Bytes()
}

func (m *Message) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	if b[0]&0x80 != 0 {
		return errors.New("versioned messages not supported")
	}

	r := &wireReader{buf: bytes.NewBuffer(b)}

	var header [3]byte
	r.full(header[:], "header")
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}
	if r.err == nil && m.Header.NumReadonlySigned > m.Header.NumSignatures {
		return errors.New("more readonly signers than signers")
	}

	numAccounts := r.len("accounts")
	if r.err != nil {
		return r.err
	}
	if referenced := int(m.Header.NumSignatures) + int(m.Header.NumReadOnly); numAccounts < referenced {
		return errors.Errorf("header references %d accounts, only %d present", referenced, numAccounts)
	}
	m.Accounts = make([]ed25519.PublicKey, numAccounts)
	for i := range m.Accounts {
		m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		r.full(m.Accounts[i], "account")
	}

	r.full(m.RecentBlockhash[:], "recent blockhash")

	m.Instructions = make([]CompiledInstruction, r.len("instructions"))
	for i := range m.Instructions {
		ix := &m.Instructions[i]

		var programIndex [1]byte
		r.full(programIndex[:], "program index")
		ix.ProgramIndex = programIndex[0]

		ix.Accounts = make([]byte, r.len("instruction accounts"))
		r.full(ix.Accounts, "instruction accounts")

		ix.Data = make([]byte, r.len("instruction data"))
		r.full(ix.Data, "instruction data")

		if r.err != nil {
			return errors.Wrapf(r.err, "instruction %d", i)
		}

		if int(ix.ProgramIndex) >= numAccounts {
			return errors.Errorf("program index out of range: %d:%d", i, ix.ProgramIndex)
		}
		for _, index := range ix.Accounts {
			if int(index) >= numAccounts {
				return errors.Errorf("account index out of range: %d:%d", i, index)
			}
		}
	}
	if r.err != nil {
		return r.err
	}

	if r.buf.Len() > 0 {
		return errors.Errorf("%d trailing bytes after message", r.buf.Len())
	}
	return nil
}

func writeLen(b *bytes.Buffer, n int) {
	// Lengths are bounded well below the shortvec limit by MaxTransactionSize
	_, _ = shortvec.EncodeLen(b, n)
}

// wireReader reads sequential fields, stopping at the first failure.
type wireReader struct {
	buf *bytes.Buffer
	err error
}

func (r *wireReader) len(field string) int {
	if r.err != nil {
		return 0
	}

	n, err := shortvec.DecodeLen(r.buf)
	if err != nil {
		r.err = errors.Wrapf(err, "failed to read %s length", field)
		return 0
	}
	return n
}

func (r *wireReader) full(dst []byte, field string) {
	if r.err != nil {
		return
	}

	if _, err := io.ReadFull(r.buf, dst); err != nil {
		r.err = errors.Wrapf(err, "failed to read %s", field)
	}
}
