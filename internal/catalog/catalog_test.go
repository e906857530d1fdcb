package catalog

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Success(t *testing.T) {
	cat, err := Load("testdata/catalog.csv")
	require.NoError(t, err)

	assert.Equal(t, 3, cat.Len())

	item, ok := cat.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, "T-Shirt", item.Name)
	assert.True(t, decimal.RequireFromString("19.99").Equal(item.Price))
	assert.Equal(t, "/static/img/shirt.png", item.Image)
	assert.Equal(t, "price_1N4shirt", item.PaymentRef)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/nope.csv")
	assert.Error(t, err)
}

func TestLoad_PreservesRowOrder(t *testing.T) {
	cat, err := Load("testdata/catalog.csv")
	require.NoError(t, err)

	items := cat.Items()
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, int64(2), items[1].ID)
	assert.Equal(t, int64(3), items[2].ID)
}

func TestRead_Malformed(t *testing.T) {
	header := "id,item,price,image,payment_reference\n"

	cases := map[string]string{
		"bad header":        "id,name,price,image,payment_reference\n1,Mug,1.00,img,ref\n",
		"bad id":            header + "x,Mug,1.00,img,ref\n",
		"duplicate id":      header + "1,Mug,1.00,img,ref\n1,Shirt,2.00,img,ref\n",
		"negative price":    header + "1,Mug,-1.00,img,ref\n",
		"unparseable price": header + "1,Mug,cheap,img,ref\n",
		"missing name":      header + "1,,1.00,img,ref\n",
		"missing ref":       header + "1,Mug,1.00,img,\n",
		"missing column":    header + "1,Mug,1.00,img\n",
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(data))
			assert.Error(t, err)
		})
	}
}

func TestRead_ZeroPriceIsAllowed(t *testing.T) {
	data := "id,item,price,image,payment_reference\n1,Freebie,0,img,ref\n"

	cat, err := Read(strings.NewReader(data))
	require.NoError(t, err)

	item, ok := cat.Lookup(1)
	require.True(t, ok)
	assert.True(t, item.Price.IsZero())
}

func TestLookup_Unknown(t *testing.T) {
	cat, err := Load("testdata/catalog.csv")
	require.NoError(t, err)

	_, ok := cat.Lookup(99)
	assert.False(t, ok)
}
