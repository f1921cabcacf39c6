package mt76

import "testing"

func TestChannelGroup(t *testing.T) {
	cases := []struct {
		channel uint8
		want    uint8
	}{
		{36, Ch5GUnii1},
		{48, Ch5GUnii1},
		{52, Ch5GUnii2},
		{64, Ch5GUnii2},
		{100, Ch5GUnii2e1},
		{116, Ch5GUnii2e2},
		{149, Ch5GUnii3},
		{192, Ch5GJapan},
	}
	for _, c := range cases {
		if got := channelGroup(c.channel); got != c.want {
			t.Errorf("channelGroup(%d) = %d, want %d", c.channel, got, c.want)
		}
	}
}

func TestChannelSubgroup(t *testing.T) {
	cases := []struct {
		channel uint8
		want    uint8
	}{
		{1, Ch2GLow},
		{6, Ch2GMid},
		{11, Ch2GHigh},
		{36, Ch5GLow},
		{48, Ch5GHigh},
		{149, Ch5GLow},
		{157, Ch5GHigh},
		{184, Ch5GLow},
		{192, Ch5GHigh},
	}
	for _, c := range cases {
		if got := channelSubgroup(c.channel); got != c.want {
			t.Errorf("channelSubgroup(%d) = %d, want %d", c.channel, got, c.want)
		}
	}
}
