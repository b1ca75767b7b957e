// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package params

import (
	"github.com/pw512/klimatas-core/kts"
)

// Network names.
const (
	MainNetName = "main"
	TestNetName = "test"
	RegTestName = "regtest"
)

const (
	mainModulus = "0xe1f2c488c64389a0194242428e21d17113b684c34457637b3753b063ba7033fa1c00241c06bca5b963d07aa9160b1c5c257dc28c42935696375feef7f7b78f6f2405dd578481d2a7229774c8064f5a58a26a605011b46372715eb746d2684ee01bd9d284f84903db72de49ed6c9840a24c405bcef48d523fe0aec5735e93582eda417b20bde23decc14111e6daf17c41b3065b863e85ad60504a10654142d01feb3e1ad6c4e601415ed669e5c19ff4d3ddb1a3c607330994d40b88bdc7fea2efa646e29a61469ef427d5f62c23009bf8d6264610539cfcd4bbe380bd6cbe566fba0030f7687fc4f0c9a5dc9f866b31b4657f2784605a6d8148d8199cf1c6e89f"
	testModulus = "0x5f6d41e0a401c491f752bfa5a45ebcb2211480ac711295ab2b7ca6d281860b2ffe8ebbf1ca36f5d59163a4592751db95ca23b6e55ae03b78334e1611f7e3e86f4f0ded48d8beabdc9519340f0c96485765f09ea4c689acff6b009c2a62a11c80df3f3783586e4b524917f3aa5b5bdd44073f9e83437d6673a32dbe797e3f328c8598e5fa5f773365f6d5504aecf08ea62adcf9572aa3dedba0dfd59c2429de370b1d6978b6d635641ac02e3f57c15d353b53dce528055e4f52a15cd60b5018cbd65c868b17595b4f6e794466c576b6f78cc9fad768bcbfea2a0ba62313b6068cc1cad58ab31173f3909d6c326c41ab9f3111198a72edca873cbf2d5e7090c3d7"
	regModulus  = "0xc24d70a1de73b0a0abd39a4d76133a1d2b730553022acb2636942ae0fc03ad755922379d81cb505b58e26cf888e24ad48a2479ed9c3395f852bee85558b23047"

	serialModulus   = "0xc834aa1e03e08b1968920d14eba4d4f9f24a4e4373af948ac00f479ce7ec61c9"
	accumulatorBase = "961"
)

var denominations = []uint64{1, 5, 10, 50, 100, 500, 1000, 5000}

const maxMoney = 21_000_000 * kts.Coin

// MainNet returns the parameters of the main network.
func MainNet() *Params {
	genesisID := kts.MustParseBytes32("0x000000003ab87b6c2a1ea1d5f1e1a8a4e1b3a0c5f4f0d3d7f4a24c28ad2e6c1f")
	return &Params{
		Name:        MainNetName,
		GenesisID:   genesisID,
		GenesisTime: 1590969600,
		Checkpoints: map[uint32]kts.Bytes32{0: genesisID},
		MaxMoney:    maxMoney,
		Activations: Activations{
			LastPoWBlock:       200,
			TimeProtocolV2:     120000,
			StakeModifierV2:    120000,
			NewSignatures:      125000,
			ZerocoinStart:      201,
			ZerocoinStartTime:  1591056000,
			ZerocoinV2:         50000,
			EnforceSerialRange: 52000,
			PublicSpends:       130000,
		},
		Stake: Stake{
			MinAge:           60 * 60,
			MinDepth:         600,
			TimeSlotLength:   15,
			FutureDriftPoS:   180,
			FutureDriftPoW:   7200,
			ModifierInterval: 60,
			Limit:            0x1e00ffff,
			LimitV2:          0x1e0fffff,
		},
		Zerocoin: Zerocoin{
			Modulus:                   MustParseInt(mainModulus),
			AccumulatorBase:           MustParseInt(accumulatorBase),
			SerialModulus:             MustParseInt(serialModulus),
			Denominations:             denominations,
			MintRequiredConfirmations: 20,
			CheckpointInterval:        10,
			MaxCheckpointCycles:       10,
			LastAccumulatorCheckpoint: 130010,
			Security:                  Security{Min: 1, Max: 100, Default: 100},
			MaxSpendsPerTx:            7,
			MaxPublicSpendsPerTx:      637,
			Recalculation: Recalculation{
				FirstFraudulent:    48005,
				LastGoodCheckpoint: 48000,
				Height:             51010,
			},
		},
		FraudWindow: FraudWindow{
			StartHeight:       48000,
			EndHeight:         51000,
			RemediationHeight: 55000,
			CompromisedSupply: 1_200_000 * kts.Coin,
		},
		InvalidOutputs: InvalidOutputs{EnforceHeight: 55000},
		MaxReorgDepth:  100,
	}
}

// TestNet returns the parameters of the public test network.
func TestNet() *Params {
	p := MainNet()
	p.Name = TestNetName
	p.GenesisID = kts.MustParseBytes32("0x000000001e482b9b9691d98eefb48473405c0b8ec31b76df3797c74a78680ef8")
	p.Checkpoints = map[uint32]kts.Bytes32{0: p.GenesisID}
	p.GenesisTime = 1590883200
	p.Activations = Activations{
		LastPoWBlock:       200,
		TimeProtocolV2:     20000,
		StakeModifierV2:    20000,
		NewSignatures:      21000,
		ZerocoinStart:      201,
		ZerocoinStartTime:  1590883200,
		ZerocoinV2:         5000,
		EnforceSerialRange: 5500,
		PublicSpends:       25000,
	}
	p.Stake.MinDepth = 100
	p.Zerocoin.Modulus = MustParseInt(testModulus)
	p.Zerocoin.LastAccumulatorCheckpoint = 25010
	p.Zerocoin.Recalculation = NoRecalculation
	p.FraudWindow = NoFraudWindow
	p.InvalidOutputs = InvalidOutputs{EnforceHeight: kts.Never}
	return p
}

// RegTest returns the parameters of the regression test network. Every rule
// is active from genesis.
func RegTest() *Params {
	return &Params{
		Name:        RegTestName,
		GenesisID:   kts.MustParseBytes32("0x000000007c3b4f0e5d33b0a8e16c9e3cf3b5b0e8e4a0b7d5c9f6f1a2d3c4b5a6"),
		GenesisTime: 1590969600,
		MaxMoney:    maxMoney,
		Activations: Activations{},
		Stake: Stake{
			MinAge:           60 * 60,
			MinDepth:         10,
			TimeSlotLength:   15,
			FutureDriftPoS:   180,
			FutureDriftPoW:   7200,
			ModifierInterval: 60,
			Limit:            0x207fffff,
			LimitV2:          0x207fffff,
		},
		Zerocoin: Zerocoin{
			Modulus:                   MustParseInt(regModulus),
			AccumulatorBase:           MustParseInt(accumulatorBase),
			SerialModulus:             MustParseInt(serialModulus),
			Denominations:             denominations,
			MintRequiredConfirmations: 2,
			CheckpointInterval:        10,
			MaxCheckpointCycles:       2,
			LastAccumulatorCheckpoint: kts.Never,
			Security:                  Security{Min: 1, Max: 100, Default: 10},
			MaxSpendsPerTx:            7,
			MaxPublicSpendsPerTx:      637,
			Recalculation:             NoRecalculation,
		},
		FraudWindow:    NoFraudWindow,
		InvalidOutputs: InvalidOutputs{EnforceHeight: kts.Never},
		MaxReorgDepth:  100,
	}
}
