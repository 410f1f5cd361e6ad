// catalog/templates.go
package catalog

import (
	"github.com/wfunc/codebattle/models"
)

// Template 题目模板，卡牌由此签发
type Template struct {
	Problem   models.Problem
	Reward    *models.Reward
	Challenge *models.Challenge
}

// 题库。进程级只读，卡牌只复制、不回写
var templates = []Template{
	{
		Problem: models.Problem{
			Title:       "Two Sum",
			Description: "Given an array of integers nums and an integer target, return indices of the two numbers such that they add up to target.",
			Difficulty:  "Easy",
			Signature: models.Signature{
				Name:    "twoSum",
				Params:  []string{"nums", "target"},
				Display: "def twoSum(nums: list, target: int) -> list:",
			},
			TestCases: []models.TestCase{
				{Input: map[string]interface{}{"nums": []int{2, 7, 11, 15}, "target": 9}, Expected: []int{0, 1}},
				{Input: map[string]interface{}{"nums": []int{3, 2, 4}, "target": 6}, Expected: []int{1, 2}},
				{Input: map[string]interface{}{"nums": []int{3, 3}, "target": 6}, Expected: []int{0, 1}},
			},
		},
		Reward: &models.Reward{Kind: models.RewardAddTime, Amount: 30},
	},
	{
		Problem: models.Problem{
			Title:       "Valid Parentheses",
			Description: "Given a string s containing just the characters \"(\", \")\", \"{\", \"}\", \"[\" and \"]\", determine if the input string is valid.",
			Difficulty:  "Easy",
			Signature: models.Signature{
				Name:    "isValid",
				Params:  []string{"s"},
				Display: "def isValid(s: str) -> bool:",
			},
			TestCases: []models.TestCase{
				{Input: map[string]interface{}{"s": "()"}, Expected: true},
				{Input: map[string]interface{}{"s": "()[]{}"}, Expected: true},
				{Input: map[string]interface{}{"s": "(]"}, Expected: false},
			},
		},
		Reward:    &models.Reward{Kind: models.RewardAddTime, Amount: 25},
		Challenge: &models.Challenge{Kind: models.ChallengeTimeLimit, Value: "120"},
	},
	{
		Problem: models.Problem{
			Title:       "Merge Two Sorted Lists",
			Description: "Merge two sorted linked lists and return it as a sorted list.",
			Difficulty:  "Easy",
			Signature: models.Signature{
				Name:    "mergeTwoLists",
				Params:  []string{"list1", "list2"},
				Display: "def mergeTwoLists(list1: list, list2: list) -> list:",
			},
			TestCases: []models.TestCase{
				{Input: map[string]interface{}{"list1": []int{1, 2, 4}, "list2": []int{1, 3, 4}}, Expected: []int{1, 1, 2, 3, 4, 4}},
				{Input: map[string]interface{}{"list1": []int{}, "list2": []int{}}, Expected: []int{}},
			},
		},
		Reward: &models.Reward{Kind: models.RewardRemoveTimeRandom, Amount: 20},
	},
	{
		Problem: models.Problem{
			Title:       "Longest Palindromic Substring",
			Description: "Given a string s, return the longest palindromic substring in s.",
			Difficulty:  "Medium",
			Signature: models.Signature{
				Name:    "longestPalindrome",
				Params:  []string{"s"},
				Display: "def longestPalindrome(s: str) -> str:",
			},
			TestCases: []models.TestCase{
				{Input: map[string]interface{}{"s": "babad"}, Expected: "bab"},
				{Input: map[string]interface{}{"s": "cbbd"}, Expected: "bb"},
			},
		},
		Reward:    &models.Reward{Kind: models.RewardAddTime, Amount: 45},
		Challenge: &models.Challenge{Kind: models.ChallengeComplexity, Value: "O(n)"},
	},
	{
		Problem: models.Problem{
			Title:       "Container With Most Water",
			Description: "Find two lines that together with the x-axis forms a container, such that the container contains the most water.",
			Difficulty:  "Medium",
			Signature: models.Signature{
				Name:    "maxArea",
				Params:  []string{"height"},
				Display: "def maxArea(height: list) -> int:",
			},
			TestCases: []models.TestCase{
				{Input: map[string]interface{}{"height": []int{1, 8, 6, 2, 5, 4, 8, 3, 7}}, Expected: 49},
				{Input: map[string]interface{}{"height": []int{1, 1}}, Expected: 1},
			},
		},
		Reward: &models.Reward{Kind: models.RewardRemoveTimeAll, Amount: 30},
	},
	{
		Problem: models.Problem{
			Title:       "3Sum",
			Description: "Find all triplets in the array which gives the sum of zero.",
			Difficulty:  "Medium",
			Signature: models.Signature{
				Name:    "threeSum",
				Params:  []string{"nums"},
				Display: "def threeSum(nums: list) -> list:",
			},
			TestCases: []models.TestCase{
				{Input: map[string]interface{}{"nums": []int{-1, 0, 1, 2, -1, -4}}, Expected: [][]int{{-1, -1, 2}, {-1, 0, 1}}},
				{Input: map[string]interface{}{"nums": []int{}}, Expected: []int{}},
			},
		},
		Reward:    &models.Reward{Kind: models.RewardRemoveTimeTargeted, Amount: 50},
		Challenge: &models.Challenge{Kind: models.ChallengeLineLimit, Value: "30"},
	},
	{
		Problem: models.Problem{
			Title:       "Trapping Rain Water",
			Description: "Given n non-negative integers representing an elevation map, compute how much water it can trap after raining.",
			Difficulty:  "Hard",
			Signature: models.Signature{
				Name:    "trap",
				Params:  []string{"height"},
				Display: "def trap(height: list) -> int:",
			},
			TestCases: []models.TestCase{
				{Input: map[string]interface{}{"height": []int{0, 1, 0, 2, 1, 0, 1, 3, 2, 1, 2, 1}}, Expected: 6},
				{Input: map[string]interface{}{"height": []int{4, 2, 0, 3, 2, 5}}, Expected: 9},
			},
		},
		Reward: &models.Reward{Kind: models.RewardAddTime, Amount: 60},
	},
	{
		Problem: models.Problem{
			Title:       "Longest Increasing Subsequence",
			Description: "Find the length of the longest strictly increasing subsequence.",
			Difficulty:  "Hard",
			Signature: models.Signature{
				Name:    "lengthOfLIS",
				Params:  []string{"nums"},
				Display: "def lengthOfLIS(nums: list) -> int:",
			},
			TestCases: []models.TestCase{
				{Input: map[string]interface{}{"nums": []int{10, 9, 2, 5, 3, 7, 101, 18}}, Expected: 4},
				{Input: map[string]interface{}{"nums": []int{0, 1, 0, 3, 2, 3}}, Expected: 4},
			},
		},
		Reward:    &models.Reward{Kind: models.RewardAddTime, Amount: 45},
		Challenge: &models.Challenge{Kind: models.ChallengeTimeLimit, Value: "180"},
	},
	{
		Problem: models.Problem{
			Title:       "Binary Search",
			Description: "Given a sorted array of integers and a target value, return the index of the target if found, otherwise return -1.",
			Difficulty:  "Medium",
			Signature: models.Signature{
				Name:    "binarySearch",
				Params:  []string{"nums", "target"},
				Display: "def binarySearch(nums: list, target: int) -> int:",
			},
			TestCases: []models.TestCase{
				{Input: map[string]interface{}{"nums": []int{-1, 0, 3, 5, 9, 12}, "target": 9}, Expected: 4},
				{Input: map[string]interface{}{"nums": []int{-1, 0, 3, 5, 9, 12}, "target": 2}, Expected: -1},
				{Input: map[string]interface{}{"nums": []int{5}, "target": 5}, Expected: 0},
			},
		},
		Reward: &models.Reward{Kind: models.RewardFlashbangTargeted, Amount: 1},
	},
}
