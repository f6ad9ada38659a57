package classify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerkerEOD/filecrack/internal/models"
)

func TestClassifyDocumentedModes(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want models.AlgorithmID
	}{
		{"rar5", "$rar5$16$74575567518807622265582327032280$15$f8b4064de34ac81ecd3f8f4a0b9e8c31$8$9843834ed0f7c754", 13000},
		{"rar3 upper", "$RAR3$*0*45109af8ab5f297a*adbf6c5385d7a40373e8f77d7b89d317", 12500},
		{"rar3 lower", "$rar3$*0*45109af8ab5f297a*adbf6c5385d7a40373e8f77d7b89d317", 12500},
		{"winzip", "$zip2$*0*3*0*e3222d3b65b5a2785b192d31e39ff9de*1320*e*19648c3e063c82a9ad3ef08ed833*3135c79ecb86cd6f48fc*$/zip2$", 13600},
		{"7z", "$7z$0$19$0$salt$8$f6196259a7326e3f0000000000000000$185065650$112$98$f3bc2a88", 11600},
		{"pdf v1", "$pdf$1*2*40*-1*0*16*01221086741440841668371056103222*32*27c3fecef6d46a78eb61b8b4dbc690f5f8a2912bbb9afc842c12d79481568b74*32*0000000000000000000000000000000000000000000000000000000000000000", 10400},
		{"pdf v2", "$pdf$2*3*128*-1028*1*16*da42ee15d4b3e08fe5b9ecea0e02ad0f*32*c9b59d72c7c670c42eeb4fca1d2ca15000000000000000000000000000000000*32*c4ff3e868dc87604626c2b8c259297a14d58c6309c70b00afdfb1fbba10ee571", 10500},
		{"pdf v4", "$pdf$4*4*128*-1028*1*16*e03460febe17a048b0adc7f7631bcc56*32*3be8c3b5e0a4a8c3e0a5a6a8e0a1a2a3a4a5a6a7a8a9aaabacadaeafb0b1b2b3*32*0000", 10500},
		{"pdf v5 r5", "$pdf$5*5*256*-1028*1*16*20583814402184226866485332754315*127*f95d927a94829db8e2fbfbc9726ebe0a391b22a084ccc2882eb107a74f7884812058381440218422686648533275431500000000000000000000000000000000*127*00", 10600},
		{"pdf v5 r6", "$pdf$5*6*256*-1028*1*16*05e5abeb21ad2e47adac1c2b2c7b7a31*127*51d3a6a09a675503383e5bc0b53da77ec5d5ea1d1998fb94e00a02a1c2e49313566f24e*127*00", 10700},
		{"office 2007", "$office$*2007*20*128*16*411a51284e0d0200b131a8949aaaa5cc*117d532441c63968bee7647d9b7df7d6*df1d601ccf905b375575108f42ef838fb88e1cde", 9400},
		{"office 2010", "$office$*2010*100000*128*16*77233201017277788267221014757262*b2d0ca4854ba19cf95a2647d5eee906c*e30cbbb189575cafb6f142a90c2622fa9e78d293c5b8c001517b3f5b82993557", 9500},
		{"office 2013", "$office$*2013*100000*256*16*7dd611d7eb4c899f74816d1dec817b3b*948dc0b2c2c6c32f14b5995a543ad037*0b7ee0e48e935f937192a59de48a7d561ef2691d5c8a3ba87ec2d04402a94895", 9600},
		{"office 2016 sheet", "$office$2016$0$100000$876MLoKTq42+/DLp415iZQ==$4sCUt7ZsLcsKgJ9UZ0oU96WBFTpcLPwWvq5+iJ6Q6tqrMDUtuz+XUo14o4Z0sRbVOGo/l0lDX2+8sDkXh2y9Ng==", 25300},
		{"oldoffice 0", "$oldoffice$0*55045061647456688860411218030058*e7e24d163fbd743992d4b8782ab7a2d5*b2ac4ebbcd8c1d40a0c6ae8f5ba2b1a2", 9700},
		{"oldoffice 1", "$oldoffice$1*04477077758555626246182730342136*b1b72ff351e41a7c68f6b45c4e938bd6*0d95331895e99f73ef8b6fbc4a78ac1a", 9700},
		{"oldoffice 3", "$oldoffice$3*83328705222323020515404251156288*2855956a165ff6511bc7f4cd77b9e101*941861655e73a09c40f7b1e9dfd0c256ed285acd", 9800},
		{"oldoffice 4", "$oldoffice$4*163472340237a3c7b04e6aa1c3ad28c8*1e7ac72eb7a2b06bfdcff1d6c4c15b36*8d5d6b70a1ac5fb8f7a5f06b3d01d06fa37e0f0b", 9800},
		{"pkzip2 single", "$pkzip2$1*2*2*0*e3*1c5*eda7a8de*0*28*8*e3*eda7*5096*a9fc1f4e951c8bb3031a6f903e5f694e6e5e3e1f*$/pkzip2$", 17200},
		{"pkzip2 multi", "$pkzip2$3*1*1*0*8*24*a425*8827*d1730095cd829e245df04ebba6c52c0573d49d3bbeab6cb385b7fa8a28dcccd3098bfdd7*$/pkzip2$", 17220},
		{"pkzip newer prefix", "$pkzip$1*2*2*0*e3*1c5*eda7a8de*0*28*8*e3*eda7*5096*a9fc*$/pkzip$", 17200},
		{"keepass", "$keepass$*2*6000*222*a279e37c38b0124559a83fa452a0269d56dc4119a5866d18e76f1f3fd536d64d", 13400},
		{"gpg", "$gpg$*1*668*2048*57e1f4e6a2a0d6a0d63a5da92d3f1e0a*3*18*2*9*16777216*5d6f8c5a2e7d6b4f", 17010},
		{"bitlocker", "$bitlocker$1$16$6f972989ddc209f1eccf07313a7266a2$1048576$12$3a33a8eaff5e6f81d907b591$60$316b0f6d4cb445fb056f0e3e0633c413", 22100},
		{"wpapsk", "$WPAPSK$linksys#9Er8sG8R3S0HOg8A5mC", 2500},
		{"sshng 0", "$sshng$0$8$7532262427635482$1224$e1b1690703b83fd0ab6677c89a00dfce", 22911},
		{"sshng 6", "$sshng$6$8$7620048997557487$1224$13517a1204dc69528c474ef5cbb02d54", 22921},
		{"sshng 1", "$sshng$1$16$14987802644369864387956120434709$1232$ffa56007ed83e49fdc439c776a9dec8", 22931},
		{"sshng 3", "$sshng$3$16$0e6b7cf4b2c5e8e6a9b0b2a0f0b2b8c1$1232$ffa56007", 22931},
		{"sshng 4", "$sshng$4$16$01684556100059289727957814500256$1232$b04d45fdfdf02a9ca91cd5a1ee9ba7", 22941},
		{"sshng 5", "$sshng$5$16$52935050547964524511665675049973$1232$febee392e88cf15ecd3d39f2f2e2fa0", 22951},
		{"md5crypt", "$1$28772684$iEwNOgGugqO9.bIz5sk8k/", 500},
		{"sha256crypt", "$5$rounds=5000$GX7BopJZJxPc/KEK$le16UF8I2Anb.rOrn22AUPWvzUETDGefUmAV8AZkGcD", 7400},
		{"sha512crypt", "$6$52450745$k5ka2p8bFuSmoVT1tzOyyuaREkkKBcCNqoDKzYiJL9RaE8yMnPgh2XzzF0NDrUhgrcLwg78xs1w5pJiypEdFX/", 1800},
		{"bcrypt", "$2a$05$LhayLxezLhK1LhWvKxCyLOj0j1u.Kj0jZ0pEmm134uzrQlFvQJLF6", 3200},
		{"surrounding whitespace", "  $7z$0$19$0$salt\n", 11600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.hash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyUnrecognized(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"unknown prefix", "$vnc$*00112233*44556677"},
		{"plain md5", "5f4dcc3b5aa765d61d8327deb882cf99"},
		{"pdf v3", "$pdf$3*3*128*-4*1*16*aa*32*bb*32*cc"},
		{"pdf v5 r4", "$pdf$5*4*256*-1028*1*16*aa"},
		{"pdf missing fields", "$pdf$5"},
		{"office no year", "$office$*2019*100000*256*16*aa*bb*cc"},
		{"oldoffice 2", "$oldoffice$2*aa*bb*cc"},
		{"oldoffice empty", "$oldoffice$"},
		{"pkzip2 count 2", "$pkzip2$2*1*1*0*8*24*a425*$/pkzip2$"},
		{"pkzip2 garbage", "$pkzip2$x*1*1*$/pkzip2$"},
		{"sshng cipher 2", "$sshng$2$16$aa$1232$bb"},
		{"sshng no separator", "$sshng$0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.hash)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrUnrecognizedAlgorithm))
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	hash := "$office$*2013*100000*256*16*7dd611d7eb4c899f74816d1dec817b3b*948dc0b2c2c6c32f14b5995a543ad037*0b7e"
	first, err := Classify(hash)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Classify(hash)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRulePrefixesDoNotShadow(t *testing.T) {
	// a later rule whose prefix starts with an earlier one could never fire
	for i, early := range Rules {
		for _, late := range Rules[i+1:] {
			assert.False(t, early.matches(late.Prefix), "%s shadows %s", early.Name, late.Name)
		}
	}
}
