/*
Package codec implements the protobuf wire format used by all persisted
models and messages.

Models are encoded field by field with a Buffer and decoded with Decode,
which dispatches every field number to a callback. Unknown fields are
skipped so that older binaries can read newer records.

	func (m *Thing) Marshal() ([]byte, error) {
		var b codec.Buffer
		b.Uvarint(1, m.ID)
		b.String(2, m.Name)
		return b.Result()
	}

	func (m *Thing) Unmarshal(raw []byte) error {
		*m = Thing{}
		return codec.Decode(raw, func(d *codec.Decoder, field int) error {
			switch field {
			case 1:
				m.ID = d.Uvarint()
			case 2:
				m.Name = d.Text()
			default:
				d.Skip()
			}
			return d.Err()
		})
	}
*/
package codec
