package brcode

import (
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"
)

func TestEncodeField(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		value   string
		want    string
		wantErr error
	}{
		{name: "country", id: "58", value: "BR", want: "5802BR"},
		{name: "format indicator", id: "00", value: "01", want: "000201"},
		{name: "empty value", id: "62", value: "", want: "6200"},
		{name: "two digit length", id: "59", value: "FULANO DE TAL", want: "5913FULANO DE TAL"},
		{name: "max length", id: "26", value: strings.Repeat("A", 99), want: "2699" + strings.Repeat("A", 99)},
		{name: "too long", id: "26", value: strings.Repeat("A", 100), wantErr: ErrFieldTooLong},
		{name: "single digit id", id: "5", value: "BR", wantErr: ErrInvalidFieldID},
		{name: "three digit id", id: "580", value: "BR", wantErr: ErrInvalidFieldID},
		{name: "letters in id", id: "5A", value: "BR", wantErr: ErrInvalidFieldID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeField(tt.id, tt.value)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Len(t, got, 4+len(tt.value))
		})
	}
}

func TestEncodeFieldReportsID(t *testing.T) {
	_, err := EncodeField("59", strings.Repeat("X", 120))

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, "59", fe.ID)
	require.EqualError(t, err, "field 59: field value too long")
}

func TestBuildComposite(t *testing.T) {
	got, err := BuildComposite("26",
		Field{ID: "00", Value: "br.gov.bcb.pix"},
		Field{ID: "01", Value: "user@bank.com"},
	)
	require.NoError(t, err)
	require.Equal(t, "26350014br.gov.bcb.pix0113user@bank.com", got)

	got, err = BuildComposite("62", Field{ID: "05", Value: "***"})
	require.NoError(t, err)
	require.Equal(t, "62070503***", got)
}

func TestBuildCompositeKeepsOrder(t *testing.T) {
	a, err := BuildComposite("80", Field{ID: "01", Value: "A"}, Field{ID: "02", Value: "B"})
	require.NoError(t, err)
	b, err := BuildComposite("80", Field{ID: "02", Value: "B"}, Field{ID: "01", Value: "A"})
	require.NoError(t, err)

	require.Equal(t, "80100101A0201B", a)
	require.Equal(t, "80100201B0101A", b)
}

func TestBuildCompositeErrors(t *testing.T) {
	t.Run("inner too long", func(t *testing.T) {
		// 4 + 14 + 4 + 78 = 100 bytes of inner content.
		_, err := BuildComposite("26",
			Field{ID: "00", Value: DefaultGUI},
			Field{ID: "01", Value: strings.Repeat("k", 78)},
		)
		require.ErrorIs(t, err, ErrFieldTooLong)
	})

	t.Run("largest key that fits", func(t *testing.T) {
		got, err := BuildComposite("26",
			Field{ID: "00", Value: DefaultGUI},
			Field{ID: "01", Value: strings.Repeat("k", 77)},
		)
		require.NoError(t, err)
		require.Len(t, got, 103)
	})

	t.Run("bad subfield id", func(t *testing.T) {
		_, err := BuildComposite("62", Field{ID: "5", Value: "***"})
		require.ErrorIs(t, err, ErrInvalidFieldID)

		var fe *FieldError
		require.True(t, errors.As(err, &fe))
		require.Equal(t, "62", fe.ID)
	})

	t.Run("bad outer id", func(t *testing.T) {
		_, err := BuildComposite("x2", Field{ID: "05", Value: "***"})
		require.ErrorIs(t, err, ErrInvalidFieldID)
	})
}
