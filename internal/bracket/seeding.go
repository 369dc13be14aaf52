package bracket

// First-round pairings by seed, in game order. The standard single
// elimination order: top seeds are spread so 1 and 2 can only ever meet in
// the final.
var firstRoundPairsBySize = map[int][][2]int{
	SizeEight: {
		{1, 8}, {4, 5}, {2, 7}, {3, 6},
	},
	SizeSixteen: {
		{1, 16}, {8, 9}, {5, 12}, {4, 13},
		{6, 11}, {3, 14}, {7, 10}, {2, 15},
	},
}

func FirstRoundPairs(size int) [][2]int {
	return firstRoundPairsBySize[size]
}
