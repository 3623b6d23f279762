package nand

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ralim/libwii/wiierror"
)

const settingKeySeed uint32 = 0x73B5DBFA
const settingTxtSize = 256

// SettingTxt is the console's decrypted setting.txt: region, model, and
// serial number data shared with titles that ask for it via /title/.
type SettingTxt struct {
	Area         string
	Model        string
	DVD          int
	MPCH         string
	Code         string
	SerialNumber string
	Video        string
	Game         string
}

func rotateLeft1(key uint32) uint32 {
	return (key << 1) | (key >> 31)
}

// xorStream XORs each byte of data against the low byte of a key that is
// rotated left by one bit after every byte, starting from the fixed
// console key. This is the full obfuscation setting.txt uses; it is
// involutive, so the same function both encrypts and decrypts.
func xorStream(data []byte) []byte {
	key := settingKeySeed
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ byte(key&0xFF)
		key = rotateLeft1(key)
	}
	return out
}

// LoadSettingTxt decrypts and parses a raw 256-byte setting.txt blob.
func LoadSettingTxt(data []byte) (SettingTxt, error) {
	dec := xorStream(data)
	text := string(dec)
	if !utf8.Valid(dec) {
		if idx := strings.LastIndexByte(text, '\n'); idx >= 0 {
			text = text[:idx+1]
		}
	}
	return parseSettingTxt(text)
}

func parseSettingTxt(text string) (SettingTxt, error) {
	fields := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(strings.TrimSpace(line), "\r")
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	required := []string{"AREA", "MODEL", "DVD", "MPCH", "CODE", "SERNO", "VIDEO", "GAME"}
	for _, k := range required {
		if _, ok := fields[k]; !ok {
			return SettingTxt{}, &wiierror.MalformedInput{Where: fmt.Sprintf("nand.LoadSettingTxt: missing key %s", k), Offset: 0}
		}
	}
	dvd, err := strconv.Atoi(fields["DVD"])
	if err != nil {
		return SettingTxt{}, &wiierror.MalformedInput{Where: "nand.LoadSettingTxt: DVD is not an integer", Offset: 0}
	}
	return SettingTxt{
		Area:         fields["AREA"],
		Model:        fields["MODEL"],
		DVD:          dvd,
		MPCH:         fields["MPCH"],
		Code:         fields["CODE"],
		SerialNumber: fields["SERNO"],
		Video:        fields["VIDEO"],
		Game:         fields["GAME"],
	}, nil
}

// DumpDecrypted renders the SettingTxt back into its plaintext
// "KEY=value\r\n" line format.
func (s SettingTxt) DumpDecrypted() string {
	var b strings.Builder
	fmt.Fprintf(&b, "AREA=%s\r\n", s.Area)
	fmt.Fprintf(&b, "MODEL=%s\r\n", s.Model)
	fmt.Fprintf(&b, "DVD=%d\r\n", s.DVD)
	fmt.Fprintf(&b, "MPCH=%s\r\n", s.MPCH)
	fmt.Fprintf(&b, "CODE=%s\r\n", s.Code)
	fmt.Fprintf(&b, "SERNO=%s\r\n", s.SerialNumber)
	fmt.Fprintf(&b, "VIDEO=%s\r\n", s.Video)
	fmt.Fprintf(&b, "GAME=%s\r\n", s.Game)
	return b.String()
}

// Dump encrypts the SettingTxt back into the raw, NUL-padded 256-byte
// form the Wii expects at setting.txt's fixed location on NAND.
func (s SettingTxt) Dump() []byte {
	enc := xorStream([]byte(s.DumpDecrypted()))
	if len(enc) >= settingTxtSize {
		return enc[:settingTxtSize]
	}
	out := make([]byte, settingTxtSize)
	copy(out, enc)
	return out
}
