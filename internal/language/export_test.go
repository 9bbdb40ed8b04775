package language

var RomanHindi = romanHindi
