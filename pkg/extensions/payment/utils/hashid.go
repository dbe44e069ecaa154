package utils

import (
	"fmt"
	"strings"

	"github.com/speps/go-hashids/v2"
)

const DonationIDPrefix = "dn-"

// IDCodec turns database ids into opaque public ids such as "dn-8kQv2L".
type IDCodec struct {
	prefix string
	h      *hashids.HashID
}

func NewIDCodec(salt string) (*IDCodec, error) {
	hd := hashids.NewData()
	hd.Salt = "donation:" + salt
	hd.MinLength = 6
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, err
	}
	return &IDCodec{prefix: DonationIDPrefix, h: h}, nil
}

// EncodeDonationID 编码数据库ID为HashID
func (c *IDCodec) EncodeDonationID(id uint) string {
	s, err := c.h.EncodeInt64([]int64{int64(id)})
	if err != nil {
		// only negative numbers fail to encode
		return ""
	}
	return c.prefix + s
}

// DecodeDonationID 解码HashID获取数据库ID
func (c *IDCodec) DecodeDonationID(hashID string) (uint, error) {
	if !strings.HasPrefix(hashID, c.prefix) {
		return 0, fmt.Errorf("invalid donation id '%s'", hashID)
	}
	nums, err := c.h.DecodeInt64WithError(strings.TrimPrefix(hashID, c.prefix))
	if err != nil {
		return 0, fmt.Errorf("invalid donation id '%s': %w", hashID, err)
	}
	if len(nums) != 1 || nums[0] <= 0 {
		return 0, fmt.Errorf("invalid donation id '%s'", hashID)
	}
	return uint(nums[0]), nil
}
