/*
Package config loads applyre settings.

	            +-------------+
	            |  Settings   |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   HCL    | |   JSON   |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Picks a parser by file extension from the registry
- Rejects unknown keys in every format
- Fills in the defaults of the original command line tool

🔄 Precedence:
1. Built-in defaults
2. Settings file (.applyre.yaml unless --settings names another)
3. Command line flags and positional arguments

🔍 Example:

	s, err := config.LoadOptional(ctx, config.DefaultFile)
	if err != nil {
		return err
	}
	rs, err := rulefile.Load(ctx, s.Rules, s.RuleFileOptions()...)

HCL settings can read the environment:

	input  = "${env.HOME}/lexicons/main.txt"
	rules  = "ApplyRE.regex.txt"
	jobs   = 8
*/
package config
